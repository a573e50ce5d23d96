package classifier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keyword maps a lowercase substring to the process numbers it votes for.
type Keyword struct {
	Term      string `yaml:"keyword" json:"keyword"`
	Processes []int  `yaml:"processes" json:"processes"`
}

// DefaultKeywords returns the built-in keyword table. Order matters: it
// decides the ranking of equally scored processes.
func DefaultKeywords() []Keyword {
	return []Keyword{
		// Закупки
		{"закупк", []int{81, 82, 83, 84, 38, 39}},
		{"тендер", []int{82}},
		{"поставщик", []int{39, 83}},
		{"контракт", []int{83, 84, 24, 76}},
		{"договор", []int{24, 76, 83, 84}},

		// Финансы
		{"финанс", []int{46, 47, 48, 49, 50, 51, 52}},
		{"бюджет", []int{46}},
		{"бухгалтер", []int{50}},
		{"налог", []int{51}},
		{"отчетност", []int{52}},

		// Персонал
		{"персонал", []int{56, 57, 58, 59, 60, 61, 62}},
		{"сотрудник", []int{57, 58, 59, 60}},
		{"подбор", []int{57}},
		{"обучение", []int{59}},
		{"кадр", []int{62}},

		// Продажи и клиенты
		{"продаж", []int{19, 20, 21, 22, 23, 24, 25}},
		{"клиент", []int{25, 26, 27, 28, 29, 30, 31, 32}},
		{"заявк", []int{20}},
		{"коммерческ", []int{23}},

		// ИТ
		{"it", []int{66, 67, 68, 69, 70, 71, 72, 73, 74, 75}},
		{"систем", []int{74, 75}},
		{"разработк", []int{69, 76}},
		{"безопасност", []int{68}},

		// Юридические вопросы
		{"юридическ", []int{76, 77, 78}},
		{"претензи", []int{78}},
		{"комплаенс", []int{79}},

		// Производство и логистика
		{"производств", []int{36, 37, 38, 39, 40, 41, 42, 43, 44, 45}},
		{"склад", []int{40, 41}},
		{"логистик", []int{40}},
		{"качеств", []int{42}},
	}
}

// LoadKeywords reads a keyword table from YAML:
//
//	keywords:
//	  - keyword: закупк
//	    processes: [81, 82, 83]
func LoadKeywords(path string) ([]Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword table: %w", err)
	}

	var doc struct {
		Keywords []Keyword `yaml:"keywords"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing keyword table: %w", err)
	}

	out := make([]Keyword, 0, len(doc.Keywords))
	for i, k := range doc.Keywords {
		term := strings.ToLower(strings.TrimSpace(k.Term))
		if term == "" {
			return nil, fmt.Errorf("keyword table entry %d: empty keyword", i)
		}
		if len(k.Processes) == 0 {
			return nil, fmt.Errorf("keyword table entry %d (%s): no processes", i, term)
		}
		out = append(out, Keyword{Term: term, Processes: k.Processes})
	}
	return out, nil
}
