package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	errx "github.com/primal-archive/server/internal/core/error"
	"github.com/primal-archive/server/internal/search"
	logx "github.com/primal-archive/server/pkg/logger"
)

// ToolSearchArchive is the capability the router model may request to
// pull grounding context from the document archive.
const ToolSearchArchive = "search_archive"

const DefaultTopK = 4

type SearchArchiveInput struct {
	Query string `json:"query"`
}

// SearchArchiveTool wraps the search collaborator as an eino tool. It
// implements tool.InvokableTool directly so the tool message carries the
// plain concatenated text block rather than a JSON envelope; the grader
// and answer templates consume it verbatim.
type SearchArchiveTool struct {
	searcher search.Searcher
	topK     int
}

func NewSearchArchiveTool(searcher search.Searcher, topK int) *SearchArchiveTool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &SearchArchiveTool{searcher: searcher, topK: topK}
}

func (t *SearchArchiveTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolSearchArchive,
		Desc: "Search and return information from the archive of the author's published works, lectures, and documented teachings. Use this tool whenever the question touches diet, health, food preparation, or anything the archive may cover.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     "string",
				Desc:     "Search keywords or a short phrase describing the information needed.",
				Required: true,
			},
		}),
	}, nil
}

func (t *SearchArchiveTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in SearchArchiveInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("parse %s arguments: %w", ToolSearchArchive, err)
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", fmt.Errorf("%s: query is required", ToolSearchArchive)
	}

	chunks, err := t.searcher.Search(ctx, query, t.topK)
	if err != nil {
		logx.Error().Err(err).Str("query", query).Msg("archive search failed")
		return "", errx.WrapCollaborator(err)
	}

	logx.Debug().Str("query", query).Int("chunks", len(chunks)).Msg("archive search completed")

	// A zero-result search yields an empty block on purpose; the grader
	// will mark it not relevant and trigger a rewrite.
	return FormatChunks(chunks), nil
}

// FormatChunks concatenates retrieved chunk contents into the single
// text block handed to the grader and the answer generator.
func FormatChunks(chunks []search.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// GetQueryTools lists the business tools bound to the router model.
func GetQueryTools(searcher search.Searcher, topK int) []tool.BaseTool {
	return []tool.BaseTool{NewSearchArchiveTool(searcher, topK)}
}

// GetToolInfos collects ToolInfo from the given tools for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

var _ tool.InvokableTool = (*SearchArchiveTool)(nil)
