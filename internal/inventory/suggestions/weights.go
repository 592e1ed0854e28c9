package suggestions

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Optional tuning files. Missing or malformed files degrade to neutral
// weights, never to an error: the ranking must work on raw history alone.
const (
	usageRankingFile  = "tool_usage_ranking.csv"
	familyWeightsFile = "subject_family_weights.csv"
)

type weights struct {
	// usage level per tool code, scale 0..4
	usage map[string]float64
	// weight per subject-family keyword, scale 0..5
	family map[string]float64
}

func loadWeights(dir string) weights {
	return weights{
		usage:  loadCSVMap(dir, usageRankingFile),
		family: loadCSVMap(dir, familyWeightsFile),
	}
}

// loadCSVMap reads a two-column key,value file, skipping a header row and
// any row whose value does not parse.
func loadCSVMap(dir, name string) map[string]float64 {
	out := make(map[string]float64)
	if dir == "" {
		return out
	}
	f, err := os.Open(dir + string(os.PathSeparator) + name)
	if err != nil {
		log.Debug().Str("file", name).Msg("weight file not present, using neutral weights")
		return out
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("weight file unreadable, using neutral weights")
		return out
	}
	for i, rec := range records {
		if len(rec) < 2 {
			continue
		}
		key := strings.TrimSpace(rec[0])
		v, perr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if perr != nil {
			if i == 0 {
				continue // header row
			}
			continue
		}
		if key == "" {
			continue
		}
		out[strings.ToLower(key)] = v
	}
	return out
}

// factor blends the two optional signals into a multiplier over raw demand.
func (w weights) factor(toolCode, subjectName string) float64 {
	usage := w.usage[strings.ToLower(toolCode)]
	var family float64
	lower := strings.ToLower(subjectName)
	for kw, v := range w.family {
		if strings.Contains(lower, kw) && v > family {
			family = v
		}
	}
	return 1 + 0.7*family/5 + 0.3*usage/4
}
