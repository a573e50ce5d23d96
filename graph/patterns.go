package graph

import "regexp"

// word matches one token. RE2's \w is ASCII only, so Cyrillic needs the
// Unicode classes spelled out.
const word = `([\p{L}\p{N}_]+)`

// relationPattern is a verb phrase with the left and right tokens captured
// in groups 1 and 2.
type relationPattern struct {
	re       *regexp.Regexp
	relation string
}

func mustPattern(verbPhrase, relation string) relationPattern {
	return relationPattern{
		re:       regexp.MustCompile(`(?i)` + word + `\s+` + verbPhrase + `\s+` + word),
		relation: relation,
	}
}

// relationPatterns are tried in order over every chunk.
var relationPatterns = []relationPattern{
	mustPattern(`(?:заключил|заключить|подписал|подписать)\s+(?:договор|контракт|соглашение)\s+(?:с|на)`, RelSignContract),
	mustPattern(`(?:поставил|поставить|поставляет|поставка)`, RelSupply),
	mustPattern(`(?:получил|получить|получает)`, RelReceive),
	mustPattern(`(?:управляет|управлять|управление)`, RelManage),
	mustPattern(`(?:работает|работать)\s+(?:с|в)`, RelWorkWith),
	mustPattern(`(?:взаимодействует|взаимодействовать)\s+с`, RelCollaborate),
	mustPattern(`(?:закупает|закупить|закупка)`, RelAcquire),
	mustPattern(`(?:продает|продать|продажа)`, RelSell),
	mustPattern(`(?:отчитывается|отчитаться)\s+(?:перед|в)`, RelReportTo),
	mustPattern(`(?:контролирует|контролировать)`, RelControl),
}

// relationKeywords infer a proximity relation tag from its context. The
// first group with a keyword present wins.
var relationKeywords = []struct {
	relation string
	keywords []string
}{
	{RelSignContract, []string{"договор", "контракт", "соглашение", "подписать"}},
	{RelSupply, []string{"поставка", "поставить", "доставить", "отгрузить"}},
	{RelAcquire, []string{"закупка", "закупить", "приобрести", "купить"}},
	{RelManage, []string{"управление", "управлять", "руководить", "контролировать"}},
	{RelCollaborate, []string{"работа", "сотрудничество", "взаимодействие"}},
	{RelReportTo, []string{"отчет", "отчитаться", "предоставить отчет"}},
}

// actionVerbs make a proximity context valid on their own.
var actionVerbs = []string{
	"заключил", "заключить", "подписал", "подписать", "поставил",
	"поставить", "получил", "получить", "управляет", "управлять",
	"работает", "работать", "закупает", "закупить", "продает",
	"продать", "отчитывается", "контролирует", "контролировать",
	"взаимодействует", "взаимодействовать", "сотрудничает",
}

// connectives make a longer proximity context valid.
var connectives = map[string]bool{
	"с": true, "для": true, "от": true, "к": true, "в": true,
	"на": true, "по": true, "и": true, "или": true,
}
