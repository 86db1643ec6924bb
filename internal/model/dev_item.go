package model

const (
	DevItemStatusNew  = "new"
	DevItemStatusDone = "done"
)

type DevItem struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Details     string `json:"details" db:"details"`
	Type        string `json:"type" db:"type"`
	Status      string `json:"status" db:"status"`
	Views       int64  `json:"views" db:"views"`
	AdminNotes  string `json:"admin_notes" db:"admin_notes"`
	CompletedAt int64  `json:"completed_at" db:"completed_at"`
	Ctime       int64  `json:"ctime" db:"ctime"`
	Mtime       int64  `json:"mtime" db:"mtime"`
}

// DevItemStat is a dev item with its vote and comment counts.
type DevItemStat struct {
	DevItem
	VoteCount    int64 `json:"vote_count" db:"vote_count"`
	CommentCount int64 `json:"comment_count" db:"comment_count"`
}

type DevItemFilter struct {
	Search string
	// Status is "all", "active" (anything not done) or an exact status.
	Status string
	// Type is "all" or an exact type.
	Type string
	// Sort is "votes", "views" or "date".
	Sort   string
	Offset int
	Limit  int
}

type DevItemVote struct {
	ID        string `json:"id" db:"id"`
	DevItemID string `json:"dev_item_id" db:"dev_item_id"`
	UserID    string `json:"user_id" db:"user_id"`
	Ctime     int64  `json:"ctime" db:"ctime"`
}

type DevItemComment struct {
	ID        string `json:"id" db:"id"`
	DevItemID string `json:"dev_item_id" db:"dev_item_id"`
	UserID    string `json:"user_id" db:"user_id"`
	ParentID  string `json:"parent_id" db:"parent_id"`
	Content   string `json:"content" db:"content"`
	Ctime     int64  `json:"ctime" db:"ctime"`
	Mtime     int64  `json:"mtime" db:"mtime"`
}

// CommentView is a comment with its author, as listed on the board.
type CommentView struct {
	DevItemComment
	User    PublicUser     `json:"user"`
	Replies []*CommentView `json:"replies,omitempty"`
}
