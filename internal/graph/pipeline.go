package graph

import (
	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/agents"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/config"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retrieval"
)

// Pipeline assembles the standard node sequence: planning, the three
// retrievers, translation, extraction, trend analysis, the synthesis/skeptic
// loop, citations, and the status recommendation.
func Pipeline(cfg *config.Config, client llm.Client, log *zap.Logger) []Node {
	planner := &agents.Planner{LLM: client, Log: log}
	seerist := retrieval.NewSeerist(
		cfg.Retrieval.Seerist.APIKey,
		cfg.Retrieval.Seerist.BaseURL,
		cfg.Retrieval.Seerist.PageSize,
		log)
	reliefweb := retrieval.NewReliefWeb(
		cfg.Retrieval.ReliefWeb.AppName,
		cfg.Retrieval.ReliefWeb.BaseURL,
		cfg.Retrieval.ReliefWeb.MaxPerQuery,
		log)
	gdelt := retrieval.NewGDELT(
		cfg.Retrieval.GDELT.BaseURL,
		cfg.Retrieval.GDELT.MaxRecords,
		log)
	translator := &agents.Translator{LLM: client, Model: cfg.LLM.Model, Log: log}
	extractor := &agents.Extractor{LLM: client, Log: log}
	trend := &agents.TrendAnalyst{LLM: client, Log: log}
	synthesis := &agents.Synthesizer{LLM: client, Log: log}
	skeptic := &agents.Skeptic{LLM: client, Log: log}
	citations := &agents.CitationCompiler{Log: log}
	status := &agents.StatusRecommender{LLM: client, Log: log}

	return []Node{
		{Name: "planner", Run: planner.Run},
		{Name: "seerist_retriever", Run: seerist.Run},
		{Name: "reliefweb_retriever", Run: reliefweb.Run},
		{Name: "gdelt_retriever", Run: gdelt.Run},
		{Name: "translator", Run: translator.Run},
		{Name: "extractor", Run: extractor.Run},
		{Name: "trend_analysis", Run: trend.Run},
		{Name: NodeSynthesis, Run: synthesis.Run},
		{Name: NodeSkeptic, Run: skeptic.Run},
		{Name: "citation_manager", Run: citations.Run},
		{Name: "status_recommender", Run: status.Run},
	}
}
