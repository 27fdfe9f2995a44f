package domain

// Document is a raw uploaded file. It is only kept until its text is extracted.
type Document struct {
	Name string
	Data []byte
}

// Chunk is a bounded contiguous slice of extracted text prepared for embedding.
type Chunk struct {
	Text  string
	Index int
}

// SearchResult is a matching chunk with its cosine distance to the query.
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}

// Similarity returns the cosine similarity implied by Distance.
func (r SearchResult) Similarity() float64 { return 1 - r.Distance }

// Role tags the speaker of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. History only ever holds user and
// assistant turns; the system role is used for model instructions.
type Turn struct {
	Role    Role
	Content string
}

// UserTurn is a shorthand for a user Turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn is a shorthand for an assistant Turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }
