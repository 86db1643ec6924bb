package model

type UserReview struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Rating int    `json:"rating" db:"rating"`
	Review string `json:"review" db:"review"`
	Ctime  int64  `json:"ctime" db:"ctime"`
	Mtime  int64  `json:"mtime" db:"mtime"`
}

type ReviewView struct {
	UserReview
	User PublicUser `json:"user"`
}

type ReviewSummary struct {
	Reviews       []*ReviewView `json:"reviews"`
	AverageRating float64       `json:"averageRating"`
	TotalCount    int64         `json:"totalCount"`
}
