package generator

import (
	"context"
	"fmt"

	"rocket-backend/internal/model"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const gameSystemPrompt = `Eres un generador de comentarios de chat de Twitch/Kick para streams de videojuegos.
Genera comentarios auténticos, variados y entretenidos que los espectadores escribirían durante un stream.

REGLAS:
- Comentarios cortos o medianos (1-65 palabras máximo)
- Español casual y coloquial, con jerga gamer y cultura de internet
- Variedad: gameplay, reacciones, preguntas y emotes
- Algunos pueden tener emojis pero sin abusar
- NO repitas frases
- Adapta el contenido específicamente al juego mencionado`

// FString 模板中字面量花括号需要写成 {{ }}
const gameUserPrompt = `Genera comentarios de chat para el videojuego: "{selection}"

Devuelve EXACTAMENTE este formato JSON (sin markdown, solo el JSON):
{{
  "gameplay": ["hasta 50 frases sobre gameplay y mecánicas"],
  "reactions": ["hasta 15 reacciones cortas"],
  "questions": ["hasta 30 preguntas que haría el chat"],
  "emotes": ["hasta 15 mensajes de solo emotes"]
}}`

const topicSystemPrompt = `Eres un generador de comentarios de chat de Twitch/Kick para streams de "Just Chatting".
El streamer está conversando con su comunidad sobre un tema concreto.

REGLAS:
- Comentarios cortos o medianos (1-65 palabras máximo)
- Español casual y coloquial
- Variedad: comentarios sobre el tema, reacciones, preguntas y emotes
- NO repitas frases
- Si el tema no tiene sentido (texto aleatorio, ofensivo o vacío) responde solo {{"error": "INVALID_TOPIC"}}`

const topicUserPrompt = `Genera comentarios de chat para un stream que habla de: "{selection}"

Devuelve EXACTAMENTE este formato JSON (sin markdown, solo el JSON):
{{
  "gameplay": ["hasta 40 comentarios sobre el tema"],
  "reactions": ["hasta 15 reacciones cortas"],
  "questions": ["hasta 30 preguntas al streamer"],
  "emotes": ["hasta 15 mensajes de solo emotes"]
}}`

func newGamePrompt() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(gameSystemPrompt),
		schema.UserMessage(gameUserPrompt),
	)
}

func newTopicPrompt() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(topicSystemPrompt),
		schema.UserMessage(topicUserPrompt),
	)
}

// buildMessages 按内容模式渲染提示词
func buildMessages(ctx context.Context, mode model.ContentMode, selection string) ([]*schema.Message, error) {
	var tpl prompt.ChatTemplate
	switch mode {
	case model.ModeGame:
		tpl = newGamePrompt()
	case model.ModeJustChatting:
		tpl = newTopicPrompt()
	default:
		return nil, fmt.Errorf("unknown content mode: %q", mode)
	}

	msgs, err := tpl.Format(ctx, map[string]any{"selection": selection})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return msgs, nil
}
