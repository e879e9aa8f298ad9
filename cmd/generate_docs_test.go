package cmd

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestGenerateDocs(t *testing.T) {
	markdown, err := generateDocs()
	if err != nil {
		t.Fatalf("generateDocs() failed: %v", err)
	}

	for _, want := range []string{
		"# MCP Tools Reference",
		"## gmail_failure_report",
		"## gmail_cache_stats",
		"## google_auth_status",
		"- [gmail_cache_stats](#gmail_cache_stats)",
		"`regex` (string, optional)",
	} {
		if !strings.Contains(markdown, want) {
			t.Errorf("generated docs miss %q", want)
		}
	}

	if strings.Index(markdown, "## gmail_cache_stats") > strings.Index(markdown, "## gmail_failure_report") {
		t.Error("tools are not sorted by name")
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("example_tool",
		mcp.WithDescription("Does an example thing"),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name")),
		mcp.WithNumber("count", mcp.Description("How many")),
	)

	got := generateToolMarkdown(tool)

	expected := []string{
		"## example_tool\n\n",
		"Does an example thing\n\n",
		"**Arguments:**\n",
		"- `count` (number, optional): How many\n",
		"- `name` (string, required): The name\n",
	}
	for _, want := range expected {
		if !strings.Contains(got, want) {
			t.Errorf("generateToolMarkdown() = %q, missing %q", got, want)
		}
	}
	if strings.Index(got, "`count`") > strings.Index(got, "`name`") {
		t.Error("arguments are not sorted")
	}
}

func TestGetPropertyType(t *testing.T) {
	tests := []struct {
		name     string
		prop     map[string]interface{}
		expected string
	}{
		{name: "string", prop: map[string]interface{}{"type": "string"}, expected: "string"},
		{name: "missing", prop: map[string]interface{}{}, expected: "any"},
		{name: "wrong type", prop: map[string]interface{}{"type": 3}, expected: "any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPropertyType(tt.prop); got != tt.expected {
				t.Errorf("getPropertyType() = %q, want %q", got, tt.expected)
			}
		})
	}
}
