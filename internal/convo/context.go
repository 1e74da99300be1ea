package convo

import (
	"encoding/json"
	"fmt"
)

const personaPrompt = `You are Melville, a friendly and helpful industrial engineering AI assistant for a manufacturing facility. You should be conversational, concise, and helpful.

When responding:
- Keep your answers brief and to the point (2-3 sentences when possible)
- Use a casual, friendly tone as if talking to a colleague
- Be direct and helpful without unnecessary formality
- Only offer analytical details when specifically asked
- For greetings or simple questions, respond in a natural, conversational way
- Don't list multiple numbered options unless asked for alternatives

You have access to the factory's production data and can analyze efficiency, quality, and resource utilization when asked.`

// FactoryMetrics is the illustrative plant snapshot embedded in every
// reasoning call. A live deployment would swap DefaultContext for a provider
// backed by the real metrics pipeline.
type FactoryMetrics struct {
	Production struct {
		OverallEfficiency float64        `json:"overallEfficiency"`
		ProductionOutput  int            `json:"productionOutput"`
		Downtime          float64        `json:"downtime"`
		ProductionByLine  map[string]int `json:"productionByLine"`
	} `json:"production"`
	Efficiency struct {
		Assembly       int `json:"assembly"`
		Packaging      int `json:"packaging"`
		QualityControl int `json:"qualityControl"`
	} `json:"efficiency"`
	Quality struct {
		FirstPassYield  float64 `json:"firstPassYield"`
		DefectRate      float64 `json:"defectRate"`
		CustomerReturns float64 `json:"customerReturns"`
		ReworkRate      float64 `json:"reworkRate"`
	} `json:"quality"`
	Resources struct {
		LaborUtilization     map[string]int `json:"laborUtilization"`
		EquipmentUtilization map[string]int `json:"equipmentUtilization"`
	} `json:"resources"`
}

func defaultMetrics() FactoryMetrics {
	var m FactoryMetrics
	m.Production.OverallEfficiency = 87.3
	m.Production.ProductionOutput = 24892
	m.Production.Downtime = 4.2
	m.Production.ProductionByLine = map[string]int{
		"line1": 8245,
		"line2": 6932,
		"line3": 5478,
		"line4": 4237,
	}
	m.Efficiency.Assembly = 92
	m.Efficiency.Packaging = 87
	m.Efficiency.QualityControl = 94
	m.Quality.FirstPassYield = 98.7
	m.Quality.DefectRate = 0.8
	m.Quality.CustomerReturns = 0.3
	m.Quality.ReworkRate = 1.2
	m.Resources.LaborUtilization = map[string]int{
		"productive": 82,
		"setup":      8,
		"idle":       6,
		"downtime":   4,
	}
	m.Resources.EquipmentUtilization = map[string]int{
		"running":     78,
		"setup":       12,
		"idle":        6,
		"maintenance": 4,
	}
	return m
}

// DefaultContext serializes the illustrative factory snapshot.
func DefaultContext() string {
	b, err := json.MarshalIndent(defaultMetrics(), "", "  ")
	if err != nil {
		// Static data, cannot fail to marshal.
		panic(err)
	}
	return string(b)
}

func buildUserPrompt(contextJSON, query string) string {
	return fmt.Sprintf(`Here is the current factory data:

%s

Based on this data, please answer the following query:
%s`, contextJSON, query)
}
