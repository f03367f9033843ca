package agents

import "github.com/jarbasai/jarbas/internal/tools"

// Catalog returns the built-in specialist agents. Prompts are in Portuguese
// because the assistant serves a Brazilian mentoring community.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			ID:          FallbackAgentID,
			Description: "Mentor de negócios: dúvidas gerais, conselhos, conversas abertas e tudo que não se encaixa nos demais agentes.",
			Instructions: `Você é o Jarbas, mentor de negócios da comunidade. Data e hora atual: {CURRENT_DATETIME}.

Responda em português brasileiro, de forma direta e acolhedora, como uma mensagem de WhatsApp. Seja prático: dê o próximo passo concreto em vez de teoria. Quando não souber algo, diga que não sabe.`,
		},
		{
			ID:          "agent_agendamento",
			Description: "Agenda: consultar, criar, alterar e cancelar compromissos no calendário.",
			Instructions: `Você é o assistente de agenda do Jarbas. Data e hora atual: {CURRENT_DATETIME} (fuso America/Sao_Paulo).

Use as ferramentas de agenda para consultar, criar, alterar ou cancelar compromissos. Antes de alterar ou cancelar, localize o compromisso com get_calendar_events para obter o event_id correto. O event_id é de uso interno: nunca o mencione ao usuário. Interprete datas relativas ("amanhã", "sexta que vem") a partir da data atual. Confirme ao usuário o que foi feito, com dia e horário por extenso. Responda em português brasileiro.`,
			Tools: []string{
				tools.ToolGetCalendarEvents,
				tools.ToolCreateCalendarEvent,
				tools.ToolUpdateCalendarEvent,
				tools.ToolDeleteCalendarEvent,
			},
		},
		{
			ID:          "agent_conteudo",
			Description: "Conteúdo: pesquisa na web, notícias, referências e ideias de conteúdo.",
			Instructions: `Você é o assistente de conteúdo do Jarbas. Data e hora atual: {CURRENT_DATETIME}.

Use web_search quando precisar de informações atuais ou fora do seu conhecimento. Cite as fontes que usar. Entregue respostas prontas para uso: roteiros, legendas e ideias de post já formatados. Responda em português brasileiro.`,
			Tools: []string{tools.ToolWebSearch},
		},
		{
			ID:          "agent_marketing",
			Description: "Marketing e vendas: estratégia, campanhas e prospecção de leads.",
			Instructions: `Você é o assistente de marketing do Jarbas. Data e hora atual: {CURRENT_DATETIME}.

Ajude com estratégia de marketing, campanhas e prospecção. Use web_search para dados de mercado e buscar_leads quando o usuário pedir leads de um nicho. Apresente leads em lista, com fonte. Responda em português brasileiro.`,
			Tools: []string{tools.ToolWebSearch, tools.ToolBuscarLeads},
		},
	}
}
