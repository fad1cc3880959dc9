package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/scenario"
)

func TestClassifierFromConfig(t *testing.T) {
	cfg := config.Default().Classifier

	// "оцени риск" hits one portfolio-risk pattern with no competitor, so
	// the score is base + clear-winner boost.
	def := classifierFromConfig(cfg)
	tag, conf := def.ClassifyWithConfidence("оцени риск", "")
	assert.Equal(t, scenario.PortfolioRisk, tag)
	assert.InDelta(t, 0.6, conf, 1e-9)

	cfg.BaseConfidence = 0.2
	tuned := classifierFromConfig(cfg)
	tag, conf = tuned.ClassifyWithConfidence("оцени риск", "")
	assert.Equal(t, scenario.PortfolioRisk, tag)
	assert.InDelta(t, 0.3, conf, 1e-9)
}

func TestClassifierFromConfigHeuristic(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.HeuristicConfidence = 0.45

	tag, conf := classifierFromConfig(cfg).ClassifyWithConfidence("SBER", "")
	assert.Equal(t, scenario.SecurityOverview, tag)
	assert.InDelta(t, 0.45, conf, 1e-9)
}
