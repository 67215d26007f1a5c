package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description string, required bool, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      schema,
	}
}

func jsonResponse(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/" + schemaRef},
			},
		},
	}
}

var (
	dateParam     = queryParam("date", "Calendar day (YYYY-MM-DD)", true, map[string]interface{}{"type": "string", "format": "date"})
	buildingParam = queryParam("buildingId", "Building identifier, e.g. lab-01", false, map[string]interface{}{"type": "string"})
	periodParam   = queryParam("period", "Summary period (default: day)", false, map[string]interface{}{
		"type":    "string",
		"enum":    []string{"day", "week", "month"},
		"default": "day",
	})
	badRequest  = jsonResponse("Invalid parameters", "Error")
	serverError = jsonResponse("Store or archive failure", "Error")
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Campus Energy API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Campus Energy API",
			"description": "Simulated smart-campus energy readings, summaries, archives and alerts",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Campus Energy Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/energy": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Dashboard query",
					"description": "Single endpoint used by the dashboard. The action selects the view; building data that does not exist is answered with a message instead of an error.",
					"parameters": []map[string]interface{}{
						queryParam("action", "View to return (default: current)", false, map[string]interface{}{
							"type":    "string",
							"enum":    []string{"current", "building", "historical", "summary"},
							"default": "current",
						}),
						buildingParam,
						queryParam("date", "Calendar day for action=historical (YYYY-MM-DD)", false, map[string]interface{}{"type": "string", "format": "date"}),
						periodParam,
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "The selected view"},
						"400": badRequest,
						"500": serverError,
					},
				},
			},
			"/api/energy/current": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Current readings",
					"description": "Latest reading of each building among the 20 most recent rows, with campus totals",
					"responses": map[string]interface{}{
						"200": jsonResponse("Current readings", "CurrentReadings"),
						"500": serverError,
					},
				},
			},
			"/api/energy/buildings/{buildingId}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Building summary",
					"description": "Latest reading and averages over the building's 12 most recent readings",
					"parameters": []map[string]interface{}{
						{
							"name":     "buildingId",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Building window summary", "BuildingSummary"),
						"404": jsonResponse("No data for the building", "NoData"),
						"500": serverError,
					},
				},
			},
			"/api/energy/historical": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Readings of one day",
					"description": "Reads the daily archive when it exists, otherwise the reading store. The source field says which.",
					"parameters":  []map[string]interface{}{dateParam, buildingParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Readings of the day", "HistoricalData"),
						"400": badRequest,
						"500": serverError,
					},
				},
			},
			"/api/energy/summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Bucketed summary",
					"description": "Hourly, daily or per-day-of-month buckets. Bucket values are reconstructed from usage profiles and labelled source=reconstructed.",
					"parameters":  []map[string]interface{}{periodParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Summary for the period"},
						"400": badRequest,
						"500": serverError,
					},
				},
			},
			"/api/buildings": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Building catalog",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Catalogued buildings"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Reports whether the reading store is reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service is healthy"},
						"503": map[string]interface{}{"description": "Reading store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Reading": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"buildingId":   map[string]string{"type": "string"},
						"timestamp":    map[string]string{"type": "string", "format": "date-time"},
						"buildingName": map[string]string{"type": "string"},
						"buildingType": map[string]string{"type": "string"},
						"energyKwh":    map[string]string{"type": "number"},
						"temperature":  map[string]string{"type": "number"},
						"occupancy":    map[string]string{"type": "integer"},
						"cost":         map[string]string{"type": "number"},
					},
				},
				"CurrentReadings": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"timestamp": map[string]string{"type": "string", "format": "date-time"},
						"readings": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/Reading"},
						},
						"summary": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"buildingCount":  map[string]string{"type": "integer"},
								"totalEnergyKwh": map[string]string{"type": "number"},
								"totalCost":      map[string]string{"type": "number"},
							},
						},
					},
				},
				"BuildingSummary": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"buildingId":    map[string]string{"type": "string"},
						"latest":        map[string]string{"$ref": "#/components/schemas/Reading"},
						"hourlyAverage": map[string]string{"type": "object"},
					},
				},
				"HistoricalData": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"date":   map[string]string{"type": "string", "format": "date"},
						"source": map[string]interface{}{"type": "string", "enum": []string{"archive", "store"}},
						"readings": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/Reading"},
						},
					},
				},
				"NoData": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]string{"type": "string"},
					},
				},
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
