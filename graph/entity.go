package graph

// Entity type tags produced by taggers.
const (
	TypePerson   = "PER"
	TypeOrg      = "ORG"
	TypeLocation = "LOC"
	TypeMisc     = "MISC"
)

// Relation tags.
const (
	RelSignContract = "sign_contract"
	RelSupply       = "supply"
	RelReceive      = "receive"
	RelManage       = "manage"
	RelWorkWith     = "work_with"
	RelCollaborate  = "collaborate"
	RelAcquire      = "acquire"
	RelSell         = "sell"
	RelReportTo     = "report_to"
	RelControl      = "control"
	RelGenericLink  = "generic_link"
)

// Entity is a tagged span. Start and End are rune offsets within the chunk
// the span was tagged in.
type Entity struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Chunk int    `json:"chunk"`
}

// Relation is a directed, tagged link between two entities.
type Relation struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Relation   string `json:"relation"`
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
	Context    string `json:"context"`
}

// Key returns the relation identity used for deduplication.
func (r Relation) Key() string {
	return Key(r.Source) + "\x00" + r.Relation + "\x00" + Key(r.Target)
}

// Chain is a single [source, relation, target] edge.
type Chain [3]string
