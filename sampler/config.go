package sampler

// Strategy selects how the candidate pool is generated.
type Strategy string

const (
	// StrategyUniform draws candidates uniformly inside the area by
	// rejection against its boundary.
	StrategyUniform Strategy = "uniform"
	// StrategyPoisson draws a poisson-disc set over the bounding box and
	// keeps the candidates inside the area.
	StrategyPoisson Strategy = "poisson"
)

type Config struct {
	TargetCount      int
	MinDistance      float64
	OversampleFactor float64
	Seed             int64
	Strategy         Strategy
}

func ConfigDefault() Config {
	return Config{
		TargetCount:      100,
		MinDistance:      100,
		OversampleFactor: 5,
		Seed:             1,
		Strategy:         StrategyUniform,
	}
}
