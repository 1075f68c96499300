package playstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"playstore-analytics/config"
	"playstore-analytics/models"
	"playstore-analytics/utils"
)

const detailURL = "https://play.google.com/store/apps/details?id=%s&hl=en&gl=us"

// SearchQueries are the default store searches used to discover apps. The
// same app surfacing under several queries is deduplicated by app id.
var SearchQueries = []string{
	"note-taking AI apps",
	"AI note taker",
	"voice note transcription",
	"AI writing assistant",
	"meeting notes AI",
	"study notes AI",
	"smart note app",
	"AI transcriber app",
	"note app with AI",
	"intelligent notes",
	"AI summary app",
	"note taking assistant",
	"voice to text notes",
	"AI powered notes",
	"smart notebook",
	"note organizer",
	"meeting recorder",
	"lecture notes app",
}

// Extractor drives the Play Store extraction: search for app ids, fetch
// metadata per app, fetch reviews per app. It is the external collaborator
// feeding the transform pipeline; any per-item failure is logged and the
// run continues with the next item.
type Extractor struct {
	cfg       *config.Config
	logger    *utils.Logger
	pool      *utils.WorkerPool
	extracted *utils.SeenSet
	retry     *utils.RetryConfig
}

// New creates a ready-to-use Extractor.
func New(cfg *config.Config, logger *utils.Logger) *Extractor {
	return &Extractor{
		cfg:       cfg,
		logger:    logger,
		pool:      utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		extracted: utils.NewSeenSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Run performs a full extraction: discover app ids, fetch metadata, fetch
// reviews. Raw files land in the configured raw directory; apps already
// present in the metadata file are not fetched again.
func (e *Extractor) Run() error {
	metadataPath := e.cfg.RawPath(e.cfg.RawAppsFile)
	reviewsPath := e.cfg.RawPath(e.cfg.RawReviewsFile)

	if err := os.MkdirAll(e.cfg.RawDir, 0755); err != nil {
		return fmt.Errorf("extract: create raw dir: %w", err)
	}

	existing := e.loadExistingMetadata(metadataPath)
	e.logger.Info("[extract] Already extracted: %d apps", e.extracted.Size())

	chromeBin := findChromeBinary(e.cfg.ChromeBin)
	e.logger.Info("[extract] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	appIDs := e.searchApps(allocCtx, SearchQueries, e.cfg.TargetApps)
	if len(appIDs) == 0 {
		e.logger.Warn("[extract] No new apps to extract")
		return nil
	}

	newMetadata := e.extractMetadata(allocCtx, appIDs)
	if len(newMetadata) > 0 {
		if err := e.mergeAndSaveMetadata(metadataPath, existing, newMetadata); err != nil {
			return err
		}
	}

	total, err := e.extractReviews(allocCtx, reviewsPath, appIDs)
	if err != nil {
		return err
	}

	e.logger.Info("[extract] Done — %d new apps, %d reviews appended", len(newMetadata), total)
	return nil
}

// loadExistingMetadata records already-extracted app ids so re-runs only
// fetch what is missing. Returns the existing records for the later merge.
func (e *Extractor) loadExistingMetadata(path string) []models.RawApp {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var apps []models.RawApp
	if err := json.Unmarshal(data, &apps); err != nil {
		e.logger.Warn("[extract] Could not load existing metadata: %v", err)
		return nil
	}
	for _, app := range apps {
		if id, ok := app["appId"].(string); ok {
			e.extracted.Add(id)
		}
	}
	return apps
}

// searchApps runs each query against the store search page and collects
// detail-page app ids until the target is reached. Failed queries are
// skipped.
func (e *Extractor) searchApps(allocCtx context.Context, queries []string, target int) []string {
	e.logger.Info("[extract] Searching for %d apps using %d queries", target, len(queries))

	found := utils.NewSeenSet()
	var newIDs []string

	for _, query := range queries {
		if e.extracted.Size()+len(newIDs) >= target {
			break
		}

		ids, err := e.searchOne(allocCtx, query)
		if err != nil {
			e.logger.Error("[extract] Search %q failed: %v", query, err)
			continue
		}

		added := 0
		for _, id := range ids {
			if e.extracted.Contains(id) || !found.Add(id) {
				continue
			}
			newIDs = append(newIDs, id)
			added++
		}
		e.logger.Info("[extract] Query %q — %d new apps (total %d)", query, added, len(newIDs))

		time.Sleep(time.Duration(e.cfg.RateLimitMs) * time.Millisecond)
	}

	sort.Strings(newIDs)
	return newIDs
}

func (e *Extractor) searchOne(allocCtx context.Context, query string) ([]string, error) {
	searchURL := "https://play.google.com/store/search?q=" + url.QueryEscape(query) + "&c=apps&hl=en&gl=us"

	var ids []string
	err := e.retry.Do("search-"+query, func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(searchURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`
				(function() {
					var ids = [];
					var seen = {};
					var links = document.querySelectorAll('a[href*="/store/apps/details?id="]');
					for (var i = 0; i < links.length && ids.length < 30; i++) {
						var m = links[i].href.match(/details\?id=([a-zA-Z0-9._]+)/);
						if (m && !seen[m[1]]) {
							seen[m[1]] = true;
							ids.push(m[1]);
						}
					}
					return ids;
				})()
			`, &ids),
		)
	})
	return ids, err
}

// extractMetadata fetches the detail page for each app id through the
// rate-limited worker pool. Failures are collected and logged, never fatal.
func (e *Extractor) extractMetadata(allocCtx context.Context, appIDs []string) []models.RawApp {
	e.logger.Info("[extract] Extracting metadata for %d apps", len(appIDs))

	var mu sync.Mutex
	metadata := make([]models.RawApp, 0, len(appIDs))
	var failed []string

	for _, appID := range appIDs {
		id := appID
		e.pool.Submit(func() {
			app, err := e.fetchAppDetail(allocCtx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Error("[extract] %s failed: %v", id, err)
				failed = append(failed, id)
				return
			}
			metadata = append(metadata, app)
			e.logger.Debug("[extract] %s ok", id)
		})
	}
	e.pool.Wait()

	// Restore deterministic order lost to the pool.
	sort.Slice(metadata, func(i, j int) bool {
		a, _ := metadata[i]["appId"].(string)
		b, _ := metadata[j]["appId"].(string)
		return a < b
	})

	e.logger.Info("[extract] Metadata extracted: %d ok, %d failed", len(metadata), len(failed))
	return metadata
}

func (e *Extractor) fetchAppDetail(allocCtx context.Context, appID string) (models.RawApp, error) {
	var app models.RawApp

	err := e.retry.Do("detail-"+appID, func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		var detail map[string]any
		err := chromedp.Run(ctx,
			chromedp.Navigate(fmt.Sprintf(detailURL, appID)),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`
				(function() {
					var out = {};
					var titleEl = document.querySelector('h1[itemprop="name"]') || document.querySelector('h1');
					out.title = titleEl ? titleEl.innerText.trim() : '';

					var devEl = document.querySelector('div[class*="Vbfug"] a') ||
					            document.querySelector('a[href*="/store/apps/dev"]');
					out.developer = devEl ? devEl.innerText.trim() : '';

					var descEl = document.querySelector('div[data-g-id="description"]');
					out.descriptionHTML = descEl ? descEl.innerHTML : '';
					out.description = descEl ? descEl.innerText : '';

					var scoreEl = document.querySelector('div[itemprop="starRating"]') ||
					              document.querySelector('div[class*="TT9eCd"]');
					if (scoreEl) {
						var sm = scoreEl.innerText.match(/([0-9]\.[0-9])/);
						if (sm) out.score = parseFloat(sm[1]);
					}

					// "10M+ Downloads" block
					var stats = document.querySelectorAll('div[class*="wVqUob"]');
					for (var i = 0; i < stats.length; i++) {
						var t = stats[i].innerText || '';
						if (t.toLowerCase().indexOf('downloads') >= 0) {
							out.installs = t.split('\n')[0].trim();
						}
					}

					var cats = [];
					var catLinks = document.querySelectorAll('a[href*="/store/apps/category/"]');
					var catSeen = {};
					for (var j = 0; j < catLinks.length; j++) {
						var cm = catLinks[j].href.match(/category\/([A-Z_]+)/);
						var name = catLinks[j].innerText.trim();
						if (cm && name && !catSeen[cm[1]]) {
							catSeen[cm[1]] = true;
							cats.push({id: cm[1], name: name});
						}
					}
					out.categories = cats;

					var updEl = document.querySelector('div[class*="TKjAsc"] div[class*="xg1aie"]');
					out.lastUpdatedOn = updEl ? updEl.innerText.trim() : '';

					return out;
				})()
			`, &detail),
		)
		if err != nil {
			return fmt.Errorf("chromedp detail extract: %w", err)
		}

		detail["appId"] = appID
		app = detail
		return nil
	})

	return app, err
}

// mergeAndSaveMetadata merges new records into the existing metadata file,
// deduplicating by appId (first occurrence wins), and writes one indented
// JSON array.
func (e *Extractor) mergeAndSaveMetadata(path string, existing, fresh []models.RawApp) error {
	seen := make(map[string]struct{})
	merged := make([]models.RawApp, 0, len(existing)+len(fresh))

	for _, app := range append(existing, fresh...) {
		id, _ := app["appId"].(string)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, app)
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("extract: encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("extract: write metadata %q: %w", path, err)
	}

	e.logger.Info("[extract] Saved %d apps to %s", len(merged), path)
	return nil
}

// extractReviews scrolls each app's review dialog and appends raw review
// records (with the appId injected) to the JSONL file. Per-app failures are
// logged and skipped.
func (e *Extractor) extractReviews(allocCtx context.Context, path string, appIDs []string) (int, error) {
	e.logger.Info("[extract] Extracting reviews for %d apps", len(appIDs))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("extract: open reviews file %q: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)

	total := 0
	for i, appID := range appIDs {
		reviews, err := e.fetchReviews(allocCtx, appID)
		if err != nil {
			e.logger.Error("[extract] [%d/%d] Reviews for %s failed: %v", i+1, len(appIDs), appID, err)
			continue
		}

		for _, r := range reviews {
			r["appId"] = appID
			if err := enc.Encode(r); err != nil {
				return total, fmt.Errorf("extract: append review: %w", err)
			}
			total++
		}
		e.logger.Info("[extract] [%d/%d] %s — %d reviews", i+1, len(appIDs), appID, len(reviews))

		time.Sleep(time.Duration(e.cfg.RateLimitMs) * time.Millisecond)
	}

	return total, nil
}

func (e *Extractor) fetchReviews(allocCtx context.Context, appID string) ([]models.RawReview, error) {
	var reviews []models.RawReview

	err := e.retry.Do("reviews-"+appID, func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 120*time.Second)
		defer cancelTimeout()

		var raw []map[string]any

		tasks := chromedp.Tasks{
			chromedp.Navigate(fmt.Sprintf(detailURL, appID) + "&showAllReviews=true"),
			chromedp.Sleep(4 * time.Second),
		}
		// The review list loads more entries as it scrolls; a handful of
		// passes is enough for the per-app cap.
		for s := 0; s < 1+e.cfg.ReviewsPerApp/50; s++ {
			tasks = append(tasks,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
				chromedp.Sleep(1500*time.Millisecond),
			)
		}
		tasks = append(tasks, chromedp.Evaluate(`
			(function() {
				var out = [];
				var cards = document.querySelectorAll('div[data-review-id], div[class*="RHo1pe"]');
				for (var i = 0; i < cards.length; i++) {
					var card = cards[i];
					var r = {};
					r.reviewId = card.getAttribute('data-review-id') || '';

					var nameEl = card.querySelector('div[class*="X5PpBb"], span[class*="X43Kjb"]');
					r.userName = nameEl ? nameEl.innerText.trim() : '';

					var imgEl = card.querySelector('img');
					r.userImage = imgEl ? imgEl.src : '';

					var starEl = card.querySelector('div[role="img"][aria-label*="star"]');
					if (starEl) {
						var sm = (starEl.getAttribute('aria-label') || '').match(/([1-5])/);
						if (sm) r.score = parseInt(sm[1], 10);
					}

					var dateEl = card.querySelector('span[class*="bp9Aid"]');
					r.at = dateEl ? dateEl.innerText.trim() : '';

					var textEl = card.querySelector('div[class*="h3YV2d"]');
					r.content = textEl ? textEl.innerText.trim() : '';

					var helpfulEl = card.querySelector('div[class*="AJTPZc"]');
					if (helpfulEl) {
						var hm = (helpfulEl.innerText || '').match(/(\d+)/);
						if (hm) r.thumbsUpCount = parseInt(hm[1], 10);
					}

					if (r.content || r.reviewId) out.push(r);
				}
				return out;
			})()
		`, &raw))

		if err := chromedp.Run(ctx, tasks); err != nil {
			return fmt.Errorf("chromedp review extract: %w", err)
		}

		reviews = reviews[:0]
		for _, r := range raw {
			reviews = append(reviews, models.RawReview(r))
			if len(reviews) >= e.cfg.ReviewsPerApp {
				break
			}
		}
		return nil
	})

	return reviews, err
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
