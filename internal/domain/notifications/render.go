package notifications

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

func parse(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=zero").Parse(text)
}

func render(name, text string, data map[string]any) (string, error) {
	t, err := parse(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

func fallbackTitle(kind string) string {
	if title, ok := fallbackTitles[kind]; ok {
		return title
	}
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(kind, "_", " ")))
	if len(words) == 0 {
		return "Notification"
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

// fallbackMessage lists the data keys in a stable order when no template exists.
func fallbackMessage(data map[string]any) string {
	if msg, ok := data["message"].(string); ok && msg != "" {
		return msg
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "link" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, data[k]))
	}
	return strings.Join(parts, "\n")
}
