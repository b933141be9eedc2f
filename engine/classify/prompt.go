package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WessleyAI/vehicle-form/engine/domain"
)

// Marker must appear in every well-formed answer.
const Marker = "Vehicle Classification"

const defaultSystemPrompt = "You are a vehicle classification assistant."

const promptTemplate = `You are a vehicle classification assistant. Your job is to classify vehicles based on their details into one of four size categories: Small, Medium, Large, or Extra Large. You must strictly follow the provided output format and avoid including unnecessary details or instructions.

# Details
%s

# Output Format
Vehicle Classification: {year make model trim} - {category}

The {year make model trim} is a {brief description}. Given its characteristics, it falls into the "{category}" category for vehicle sizes. Here's why:

{year make model trim} - Key Attributes:
- Type: {type}
- Dimensions:
  - Length: {length}
  - Width: {width}
- Passenger Capacity: {capacity}
- Purpose: {purpose}

Classification:
- {category}: {reasoning}

Therefore, the {year make model trim} fits best into the "{category}" vehicle category.

Now classify the following vehicle and return only the result in the above output format without including unnecessary steps or explanations: %s.`

// Details lists the vehicle fields one per line. Trim is included only when
// set.
func Details(v domain.Vehicle) string {
	var b strings.Builder
	b.WriteString("Year: ")
	b.WriteString(strconv.Itoa(v.Year))
	b.WriteString("\nMake: ")
	b.WriteString(v.Make)
	b.WriteString("\nModel: ")
	b.WriteString(v.Model)
	if v.Trim != "" {
		b.WriteString("\nTrim: ")
		b.WriteString(v.Trim)
	}
	return b.String()
}

// BuildPrompt renders the user prompt for v.
func BuildPrompt(v domain.Vehicle) string {
	return fmt.Sprintf(promptTemplate, Details(v), v.String())
}

// ExtractCategory finds the size category in a model answer. It reads the
// "Vehicle Classification: ... - {category}" line first and falls back to
// the first quoted category name. ok is false when neither is present.
func ExtractCategory(answer string) (domain.Category, bool) {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#"))
		if !strings.HasPrefix(line, Marker) {
			continue
		}
		if i := strings.LastIndex(line, " - "); i >= 0 {
			if c, ok := domain.ParseCategory(line[i+3:]); ok {
				return c, true
			}
		}
		break
	}
	lower := strings.ToLower(answer)
	best, bestAt := domain.Category(""), -1
	for _, c := range domain.Categories {
		at := strings.Index(lower, `"`+strings.ToLower(string(c))+`"`)
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = c, at
		}
	}
	return best, bestAt >= 0
}
