package utilization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
)

func defaultConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := NewConfig(Config{
		UtilMu: 0.6, UtilWeight: 0.45,
		BurnMu: 30, BurnWeight: 0.35,
		SpendMu: 0.033, SpendSigma: 0.02, SpendWeight: 0.20,
		LabelHealthy: 80, LabelMedium: 60, LabelHigh: 40, LabelVeryHigh: 20,
	})
	require.NoError(t, err)
	return cfg
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestNewConfigRejectsBadWeights(t *testing.T) {
	_, err := NewConfig(Config{UtilWeight: 0.5, BurnWeight: 0.5, SpendWeight: 0.5})
	require.Error(t, err)
	var cfgErr *ErrConfigInvalid
	assert.ErrorAs(t, err, &cfgErr)
}

func TestAnalyzeLowConfidenceYieldsUnknown(t *testing.T) {
	cfg := defaultConfig(t)
	result := Analyze(cfg, []txdomain.Transaction{
		{Date: day("2025-01-01"), AmountCents: 100, Type: txdomain.TransactionDebit},
	}, PaycheckInfo{AvgPaycheckCents: 100000, PeriodDays: 14, Confidence: 0.1})

	assert.Equal(t, LabelUnknown, result.Label)
	assert.Nil(t, result.UtilizationPct)
	assert.Equal(t, 0.0, result.CompositeScore)
}

func TestAnalyzeGaussianPeakNearIdealUtilization(t *testing.T) {
	cfg := defaultConfig(t)
	// paycheck 100000 cents / 14 days; spend = 0.6*100000 over the cycle -> utilization ~0.6
	txs := []txdomain.Transaction{
		{Date: day("2025-01-01"), AmountCents: 60000, Type: txdomain.TransactionDebit},
		{Date: day("2025-01-14"), AmountCents: 0, Type: txdomain.TransactionCredit},
	}
	result := Analyze(cfg, txs, PaycheckInfo{AvgPaycheckCents: 100000, PeriodDays: 14, Confidence: 0.9})
	require.NotNil(t, result.UtilizationPct)
	assert.InDelta(t, 0.6, *result.UtilizationPct, 0.01)
	assert.Greater(t, result.CompositeScore, 50.0)
}

func TestAnalyzeHighUtilizationYieldsHighRiskLabel(t *testing.T) {
	cfg := defaultConfig(t)
	txs := []txdomain.Transaction{
		{Date: day("2025-01-01"), AmountCents: 300000, Type: txdomain.TransactionDebit},
		{Date: day("2025-01-14"), AmountCents: 0, Type: txdomain.TransactionCredit},
	}
	result := Analyze(cfg, txs, PaycheckInfo{AvgPaycheckCents: 100000, PeriodDays: 14, Confidence: 0.9})
	assert.Contains(t, []Label{LabelHighRisk, LabelVeryHighRisk, LabelCriticalRisk}, result.Label)
}

func TestAnalyzeNoDebitsYieldsNullBurnDays(t *testing.T) {
	cfg := defaultConfig(t)
	txs := []txdomain.Transaction{
		{Date: day("2025-01-01"), AmountCents: 1000, Type: txdomain.TransactionCredit},
	}
	result := Analyze(cfg, txs, PaycheckInfo{AvgPaycheckCents: 100000, PeriodDays: 14, Confidence: 0.9})
	assert.Nil(t, result.BurnDays)
}
