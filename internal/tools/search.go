package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jarbasai/jarbas/internal/websearch"
)

// Search tool names as presented to the model.
const (
	ToolWebSearch   = "web_search"
	ToolBuscarLeads = "buscar_leads"
)

// NewWebSearchTool builds the general web-search tool.
func NewWebSearchTool(searcher websearch.Searcher) Tool {
	return &webSearchTool{searcher: searcher}
}

type webSearchTool struct {
	searcher websearch.Searcher
}

func (t *webSearchTool) Name() string { return ToolWebSearch }

func (t *webSearchTool) Description() string {
	return "Pesquisa na web e retorna os principais resultados com fonte, título e resumo. Use para informações atuais ou fora do seu conhecimento."
}

func (t *webSearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Termos de busca", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *webSearchTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	results, err := t.searcher.Search(ctx, in.Query)
	if err != nil {
		return nil, err
	}
	return map[string]string{"results": results}, nil
}

// NewBuscarLeadsTool builds the lead-prospecting tool, a targeted search
// that composes the query from niche and region.
func NewBuscarLeadsTool(searcher websearch.Searcher) Tool {
	return &buscarLeadsTool{searcher: searcher}
}

type buscarLeadsTool struct {
	searcher websearch.Searcher
}

func (t *buscarLeadsTool) Name() string { return ToolBuscarLeads }

func (t *buscarLeadsTool) Description() string {
	return "Busca leads (empresas e contatos) de um nicho, opcionalmente filtrando por região."
}

func (t *buscarLeadsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"nicho": {"type": "string", "description": "Nicho de mercado, ex: clínicas odontológicas", "minLength": 1},
			"regiao": {"type": "string", "description": "Cidade ou região, opcional"}
		},
		"required": ["nicho"],
		"additionalProperties": false
	}`)
}

func (t *buscarLeadsTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Nicho  string `json:"nicho"`
		Regiao string `json:"regiao"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("empresas de %s contato telefone", in.Nicho)
	if strings.TrimSpace(in.Regiao) != "" {
		query = fmt.Sprintf("empresas de %s em %s contato telefone", in.Nicho, in.Regiao)
	}

	results, err := t.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]string{"leads": results}, nil
}
