package telemetry

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
)

// dashboardSpec describes the dashboard's read-only HTTP surface. Serving
// it from the dashboard itself keeps the contract next to the handlers it
// documents; LoadDashboardSpec validates it so a drifted edit fails at
// construction, not in a consumer.
const dashboardSpec = `{
  "openapi": "3.0.3",
  "info": {
    "title": "swarmcore dashboard",
    "description": "Read-only aggregated view of swarm orchestration outcomes.",
    "version": "1.0.0"
  },
  "paths": {
    "/metrics": {
      "get": {
        "summary": "Prometheus exposition of the swarm counters and histograms.",
        "responses": {
          "200": {
            "description": "Prometheus text exposition format.",
            "content": {"text/plain": {"schema": {"type": "string"}}}
          }
        }
      }
    },
    "/dashboard": {
      "get": {
        "summary": "Current rolling-window aggregate.",
        "responses": {
          "200": {
            "description": "The aggregated window.",
            "content": {
              "application/json": {
                "schema": {"$ref": "#/components/schemas/Window"}
              }
            }
          },
          "500": {"description": "The backing aggregator failed."}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Window": {
        "type": "object",
        "properties": {
          "issues_processed": {"type": "integer"},
          "outcomes": {"type": "object", "additionalProperties": {"type": "integer"}},
          "escalations": {"type": "object", "additionalProperties": {"type": "integer"}}
        }
      }
    }
  }
}`

// LoadDashboardSpec parses and validates the dashboard's OpenAPI document.
func LoadDashboardSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData([]byte(dashboardSpec))
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}
