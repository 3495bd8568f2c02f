package classify

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/model"
)

// embedConcurrency bounds parallel embedding calls within one ranking run.
const embedConcurrency = 4

// BuildQuery joins the analysis text, keyword list, and a compact rendering
// of the nonzero priors into one embedding query. Empty segments are dropped.
func BuildQuery(a model.VisionAnalysis, keywords []string, priors model.PriorVector) string {
	segments := []string{
		a.Caption,
		a.CoarseType,
		a.FineType,
		strings.Join(a.Subjects, ", "),
		strings.Join(a.SceneHints, ", "),
		strings.Join(a.Attributes, ", "),
		strings.Join(keywords, " "),
		renderPriors(priors),
	}

	var kept []string
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " | ")
}

func renderPriors(priors model.PriorVector) string {
	var parts []string
	for _, c := range model.PriorCategories {
		if v := priors[c]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%.2f", c, v))
		}
	}
	return strings.Join(parts, " ")
}

// Cosine computes dot/(|a|*|b|) over the overlapping prefix of the two
// vectors. Either vector all-zero yields 0.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank embeds the query and every candidate, scores by cosine similarity
// plus a weighted prior bonus, and returns the top-K by descending score.
// Embedding calls run concurrently; vectors are zipped back by index, never
// by arrival order.
func Rank(ctx context.Context, embedder extract.Client, query string, candidates []model.Candidate, priors model.PriorVector, cfg Config) ([]model.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(candidates)+1)
	texts := make([]string, len(candidates)+1)
	texts[0] = query
	for i, c := range candidates {
		texts[i+1] = c.EmbeddingText
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, model.WrapError(model.KindUpstream, err, "classify: embed candidates")
	}

	queryVec := vectors[0]
	ranked := make([]model.Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		score := Cosine(queryVec, vectors[i+1])
		if ranked[i].PriorKey != "" {
			score += cfg.PriorBonus * model.Clamp01(priors[ranked[i].PriorKey])
		}
		ranked[i].Score = model.Clamp01(score)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
