package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"igvision/pkg/logger"
	"igvision/pkg/ratelimit"
	"igvision/pkg/vision"
)

// Annotator abstracts the Vision client so the pipeline can be tested
// without network access
type Annotator interface {
	Annotate(ctx context.Context, image []byte) (*vision.Annotation, error)
}

// Face is the per-face emotion summary persisted for one detected face
type Face struct {
	Joy                 vision.Likelihood `json:"joy"`
	Sorrow              vision.Likelihood `json:"sorrow"`
	Anger               vision.Likelihood `json:"anger"`
	Surprise            vision.Likelihood `json:"surprise"`
	DetectionConfidence float64           `json:"detection_confidence"`
}

// Label is one detected scene or object label
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// SafeSearch is the content classification for one image
type SafeSearch struct {
	Adult    vision.Likelihood `json:"adult"`
	Violence vision.Likelihood `json:"violence"`
	Racy     vision.Likelihood `json:"racy"`
}

// Result is the analysis outcome for a single image. A failed image
// still yields a Result, with Error set and the annotation fields empty.
type Result struct {
	ImagePath  string      `json:"image_path"`
	Faces      []Face      `json:"faces,omitempty"`
	Labels     []Label     `json:"labels,omitempty"`
	SafeSearch *SafeSearch `json:"safe_search,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ProgressFunc is called after each image finishes, successfully or not
type ProgressFunc func(done, total int, result Result)

// Analyzer runs downloaded images through the Vision API with bounded
// concurrency. Individual image failures never abort the batch.
type Analyzer struct {
	annotator   Annotator
	rateLimiter ratelimit.Limiter
	concurrency int
	logger      logger.Logger
	onProgress  ProgressFunc
}

// New creates an analyzer around an annotator
func New(annotator Annotator, rateLimiter ratelimit.Limiter, concurrency int, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.GetLogger()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &Analyzer{
		annotator:   annotator,
		rateLimiter: rateLimiter,
		concurrency: concurrency,
		logger:      log,
	}
}

// OnProgress registers a progress callback
func (a *Analyzer) OnProgress(fn ProgressFunc) {
	a.onProgress = fn
}

// AnalyzeAll annotates every image path and returns one Result per
// image, in input order. The returned error is non-nil only when the
// context is cancelled; per-image failures are recorded in the results.
func (a *Analyzer) AnalyzeAll(ctx context.Context, imagePaths []string) ([]Result, error) {
	results := make([]Result, len(imagePaths))
	if len(imagePaths) == 0 {
		return results, nil
	}

	a.logger.InfoWithFields("starting image analysis", map[string]interface{}{
		"image_count": len(imagePaths),
		"concurrency": a.concurrency,
	})

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, imagePath := range imagePaths {
		i, imagePath := i, imagePath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := a.analyzeOne(gctx, imagePath)
			results[i] = result

			mu.Lock()
			done++
			current := done
			mu.Unlock()

			logger.LogAnalysisProgress(filepath.Base(imagePath), current, len(imagePaths))
			if a.onProgress != nil {
				a.onProgress(current, len(imagePaths), result)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	a.logger.InfoWithFields("image analysis finished", map[string]interface{}{
		"image_count": len(imagePaths),
		"failed":      countFailed(results),
	})

	return results, nil
}

// analyzeOne reads and annotates a single image, converting any failure
// into an error-carrying Result
func (a *Analyzer) analyzeOne(ctx context.Context, imagePath string) Result {
	result := Result{ImagePath: imagePath}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		a.logger.WarnWithFields("failed to read image", map[string]interface{}{
			"image": filepath.Base(imagePath),
			"error": err.Error(),
		})
		result.Error = err.Error()
		return result
	}

	if a.rateLimiter != nil && !a.rateLimiter.Allow() {
		a.rateLimiter.Wait()
	}

	annotation, err := a.annotator.Annotate(ctx, data)
	if err != nil {
		a.logger.WarnWithFields("failed to annotate image", map[string]interface{}{
			"image": filepath.Base(imagePath),
			"error": err.Error(),
		})
		result.Error = err.Error()
		return result
	}

	result.Faces = make([]Face, 0, len(annotation.Faces))
	for _, f := range annotation.Faces {
		result.Faces = append(result.Faces, Face{
			Joy:                 f.JoyLikelihood,
			Sorrow:              f.SorrowLikelihood,
			Anger:               f.AngerLikelihood,
			Surprise:            f.SurpriseLikelihood,
			DetectionConfidence: f.DetectionConfidence,
		})
	}

	result.Labels = make([]Label, 0, len(annotation.Labels))
	for _, l := range annotation.Labels {
		result.Labels = append(result.Labels, Label{
			Description: l.Description,
			Score:       l.Score,
		})
	}

	result.SafeSearch = &SafeSearch{
		Adult:    annotation.SafeSearch.Adult,
		Violence: annotation.SafeSearch.Violence,
		Racy:     annotation.SafeSearch.Racy,
	}

	return result
}

func countFailed(results []Result) int {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	return failed
}
