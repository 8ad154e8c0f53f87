package store

type Conversation struct {
	ID        int32
	UID       string
	UserID    int32
	Title     string
	CreatedTs int64
	UpdatedTs int64
}

type FindConversation struct {
	ID     *int32
	UID    *string
	UserID *int32
	Limit  *int
}

type UpdateConversation struct {
	ID        int32
	Title     *string
	UpdatedTs *int64
}

type Message struct {
	ID             int32
	UID            string
	ConversationID int32
	Content        string
	IsUser         bool
	Metadata       string // JSON string
	CreatedTs      int64
}

type FindMessage struct {
	ID             *int32
	UID            *string
	ConversationID *int32
}
