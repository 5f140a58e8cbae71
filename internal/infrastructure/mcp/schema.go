package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/forecast"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const schemaURI = "budgetcast://schema"

// toolNames lists every registered tool, in registration order.
var toolNames = []string{
	"budgetcast_forecast",
	"budgetcast_budget_at",
	"budgetcast_budgets_at",
	"budgetcast_budget_history",
	"budgetcast_budget_activities",
	"budgetcast_save_budget",
	"budgetcast_get_override",
	"budgetcast_set_override",
	"budgetcast_dashboard",
}

type schemaResponse struct {
	SchemaVersion      string   `json:"schema_version"`
	ServerVersion      string   `json:"server_version"`
	Tools              []string `json:"tools"`
	ChangeTypes        []string `json:"change_types"`
	SprintDurationDays int      `json:"sprint_duration_days"`
	AnalysisSprints    int      `json:"analysis_sprints"`
}

func newSchemaResponse() schemaResponse {
	types := make([]string, 0, len(budget.ChangeTypes))
	for _, ct := range budget.ChangeTypes {
		types = append(types, string(ct))
	}
	return schemaResponse{
		SchemaVersion:      SchemaVersion,
		ServerVersion:      Version,
		Tools:              toolNames,
		ChangeTypes:        types,
		SprintDurationDays: forecast.SprintDurationDays,
		AnalysisSprints:    forecast.AnalysisSprints,
	}
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool schema version, ledger change types and sprint constants").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(newSchemaResponse())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
