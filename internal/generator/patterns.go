package generator

import (
	"strings"

	"rocket-backend/internal/model"
)

// 内置短语，缓存中没有对应游戏时使用
var builtinPatterns = map[string]model.PhraseSet{
	"rdr2": {
		Gameplay: []string{
			"Ese headshot estuvo limpio!",
			"Cuidado con los O'Driscolls",
			"BOAH ese caballo esta epico",
			"F por el caballo",
			"Dutch tiene un plan... seguro",
			"Ese lasso fue perfecto",
			"Vas a subir o bajar el honor?",
			"Arthur es el mejor protagonista",
			"Ya fuiste a Saint Denis?",
			"Momento cinematografico",
		},
		Reactions: []string{
			"JAJAJA ese ragdoll",
			"Clasico Rockstar",
			"KEKW",
			"Brutal hermano",
			"Uff ese momento",
			"Ese bug es legendario",
		},
		Questions: []string{
			"Honor alto o bajo?",
			"Que arma usas mas?",
			"Que capitulo vas?",
			"Customizaste tu caballo?",
			"Ya hiciste todas las side quests?",
		},
	},
	"bg3": {
		Gameplay: []string{
			"Esa tirada critica salvo la party",
			"Romance con Shadowheart?",
			"Ese build esta roto jaja",
			"Natural 20! POG",
			"Ese spell combo fue 200 IQ",
			"Karlach best girl",
			"Astarion siendo Astarion",
			"Gale y sus discursos jajaja",
		},
		Reactions: []string{
			"KEKW ese fail",
			"XD los dados te odian",
			"Ese RNG",
			"Clasico D&D",
			"Me encanta este juego",
		},
		Questions: []string{
			"Que clase estas usando?",
			"Ya llegaste al acto 2?",
			"Con quien vas a hacer romance?",
			"Que companion usas mas?",
			"Salvaste a todos?",
		},
	},
	"minecraft": {
		Gameplay: []string{
			"Nice build!",
			"Ya encontraste diamantes?",
			"Cuidado con los creepers",
			"Esa redstone esta 200 IQ",
			"Fortune III! POG",
			"Esa granja es eficiente",
			"El Nether da miedo",
			"Ese mob farm es genius",
		},
		Reactions: []string{
			"LOL ese fail",
			"Clasico Minecraft",
			"RIP",
			"Ese creeper",
			"Uff que susto",
		},
		Questions: []string{
			"Que version estas jugando?",
			"Ya fuiste al Nether?",
			"Usas mods?",
			"Tienes elytra ya?",
			"Ya derrotaste al Ender Dragon?",
		},
	},
}

var builtinAliases = map[string]string{
	"red dead redemption 2": "rdr2",
	"rdr2":                  "rdr2",
	"red dead":              "rdr2",
	"baldur's gate 3":       "bg3",
	"baldurs gate 3":        "bg3",
	"bg3":                   "bg3",
	"minecraft":             "minecraft",
}

// fallbackPhrases 没有任何来源时使用的通用短语，每个类别都非空
var fallbackPhrases = model.PhraseSet{
	Gameplay:  []string{"Nice!", "GG", "Bien jugado", "Eso estuvo genial", "Que pro", "Increible", "Brutal"},
	Reactions: []string{"JAJAJA", "XD", "LOL", "KEKW", "No puede ser"},
	Questions: []string{"Cuantas horas llevas?", "Que tal el juego?", "Lo recomiendas?"},
	Emotes:    []string{"PogChamp", "LUL", "KEKW", "GG", "EZ"},
}

func builtinFor(label string) (model.PhraseSet, bool) {
	id, ok := builtinAliases[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return model.PhraseSet{}, false
	}
	p, ok := builtinPatterns[id]
	return p, ok
}
