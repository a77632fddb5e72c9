package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// Source is the slice of the store the analyzer reads. Satisfied by
// *store.Store.
type Source interface {
	TotalsByYear(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions []string) ([]types.YearTotal, error)
	HospitalVolumes(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions, orthoDepts []string) ([]types.HospitalVolume, error)
	DiagnosisTotals(ctx context.Context, years types.YearSpan, icdPrefixes []string) (map[int]int, error)
	TextSignals(ctx context.Context, years types.YearSpan) (map[string]string, error)
	RegionVolumes(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions []string) ([]types.RegionRollup, error)
}

// Analyzer runs the full derived-metrics pass over one data source.
type Analyzer struct {
	cfg *config.Config
	src Source
}

// New returns an analyzer over the given source.
func New(cfg *config.Config, src Source) *Analyzer {
	return &Analyzer{cfg: cfg, src: src}
}

// Run executes the complete analysis: aggregation, expected infections,
// adequacy scoring, composite scores, tiering, regional rollups, and the
// TAM estimates. The result carries a fresh run ID and the list of data
// limitations encountered.
func (a *Analyzer) Run(ctx context.Context) (*types.Result, error) {
	span := types.YearSpan{From: a.cfg.Years.From, To: a.cfg.Years.To}
	codes := a.cfg.Codes

	totals, err := a.src.TotalsByYear(ctx, span, codes.Groups, codes.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("year totals: %w", err)
	}

	volumes, err := a.src.HospitalVolumes(ctx, span, codes.Groups, codes.Exclusions, codes.OrthoDepartments)
	if err != nil {
		return nil, fmt.Errorf("hospital volumes: %w", err)
	}

	observed, err := a.src.DiagnosisTotals(ctx, span, codes.InfectionICD)
	if err != nil {
		return nil, fmt.Errorf("diagnosis totals: %w", err)
	}

	texts, err := a.src.TextSignals(ctx, span)
	if err != nil {
		return nil, fmt.Errorf("text signals: %w", err)
	}

	regions, err := a.src.RegionVolumes(ctx, span, codes.Groups, codes.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("region volumes: %w", err)
	}

	result := &types.Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Params:      *a.cfg,
		Years:       span.Years(),
		YearTotals:  totals,
		Observed:    observed,
		Regions:     RegionShares(regions),
	}

	totalVolume := 0
	for _, yt := range totals {
		totalVolume += yt.Total
		if yt.Total == 0 {
			result.Limitations = append(result.Limitations,
				fmt.Sprintf("no matching procedures reported for %d", yt.Year))
		}
	}
	result.Market = MarketEstimates(totalVolume, a.cfg.Rates, a.cfg.Market)

	maxVolume := 0
	for _, hv := range volumes {
		if hv.Volume > maxVolume {
			maxVolume = hv.Volume
		}
	}

	missingText := 0
	for _, hv := range volumes {
		// The presence flag from the volume query is authoritative; the
		// text map only supplies the content to score.
		aai := types.NoMetric()
		if hv.TextSeen {
			aai = AdequacyScore(texts[hv.IK], a.cfg.Adequacy.Signals)
		}
		if !aai.Valid {
			missingText++
		}

		volScore := VolumeScore(hv.Volume, maxVolume)
		typeScore := TypeScore(hv.Type)
		deptScore := DeptScore(hv.DeptHit)
		gap := GapScore(aai)

		hm := types.HospitalMetrics{
			IK:          hv.IK,
			Name:        hv.Name,
			State:       hv.State,
			Type:        hv.Type,
			Volume:      hv.Volume,
			DeptMatch:   hv.DeptHit,
			EII:         ExpectedInfections(hv.Volume, a.cfg.Rates),
			AAI:         aai,
			VolumeScore: volScore,
			TypeScore:   typeScore,
			DeptScore:   deptScore,
			GapScore:    gap,
			Score:       CompositeScore(a.cfg.Scoring, volScore, typeScore, deptScore, gap),
			Tier:        AssignTier(hv.Volume, hv.Type, hv.DeptHit, aai, a.cfg.Tiers),
		}
		result.Hospitals = append(result.Hospitals, hm)
	}

	// Highest opportunity first; ties broken by volume, then IK for a
	// stable export order.
	sort.SliceStable(result.Hospitals, func(i, j int) bool {
		hi, hj := result.Hospitals[i], result.Hospitals[j]
		switch {
		case hi.Score.Valid != hj.Score.Valid:
			return hi.Score.Valid
		case hi.Score.Valid && hi.Score.Value != hj.Score.Value:
			return hi.Score.Value > hj.Score.Value
		case hi.Volume != hj.Volume:
			return hi.Volume > hj.Volume
		default:
			return hi.IK < hj.IK
		}
	})

	if missingText > 0 {
		result.Limitations = append(result.Limitations,
			fmt.Sprintf("quality-report free text absent or empty for %d of %d hospitals; AAI not computable there and composite scores re-normalized", missingText, len(volumes)))
	}
	if len(observed) == 0 {
		result.Limitations = append(result.Limitations,
			"no infection diagnosis counts in the period; observed PJI load unavailable")
	}
	if maxVolume == 0 {
		result.Limitations = append(result.Limitations,
			"no hospital volumes in the period; volume and composite scores not computable")
	}

	return result, nil
}

// TierCounts summarizes the tier distribution of a result.
func TierCounts(result *types.Result) map[types.Tier]int {
	out := make(map[types.Tier]int)
	for _, h := range result.Hospitals {
		out[h.Tier]++
	}
	return out
}
