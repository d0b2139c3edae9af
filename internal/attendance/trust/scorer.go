package trust

import (
	"context"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/platform/config"
)

// Scorer maps a signal bundle to a risk score and level. Pure and
// deterministic: same bundle, same verdict. Weights and level boundaries come
// from configuration so sensitivity can be retuned without a code change.
type Scorer struct {
	cfg config.TrustConfig
}

func NewScorer(cfg config.TrustConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Evaluate scores one punch's trust context. It never returns an error:
// malformed input has already been folded into the signals as suspicion, and
// each indicator can only add to the score, so adding a suspicious indicator
// never lowers the verdict.
func (s *Scorer) Evaluate(ctx context.Context, raw map[string]any) models.Evaluation {
	signals := Normalize(ctx, raw, s.cfg.DistanceCapKM)
	return s.evaluate(signals)
}

func (s *Scorer) evaluate(sig Signals) models.Evaluation {
	score := 0.0

	if sig.DeviceUnknown {
		score += s.cfg.WeightUnknownDevice
	}
	if sig.DeviceNew {
		score += s.cfg.WeightNewDevice
	}
	if sig.BotAgent {
		score += s.cfg.WeightBotAgent
	}
	if sig.BadIP {
		score += s.cfg.WeightBadIP
	}
	if sig.LocationDrift {
		score += s.cfg.WeightLocationDrift
	}
	score += sig.DistanceKM * s.cfg.WeightDistancePerKM
	if sig.UnusualHours {
		score += s.cfg.WeightUnusualHours
	}

	return models.Evaluation{Score: score, Level: s.level(score)}
}

func (s *Scorer) level(score float64) models.RiskLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return models.RiskHigh
	case score >= s.cfg.MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
