package dto

type CreateEventInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,datetime=15:04"`
	Venue       string `json:"venue" binding:"max=200"`
	Department  string `json:"department" binding:"max=50"`
	Year        int    `json:"year" binding:"omitempty,min=1,max=6"`
	MaxPoints   int    `json:"max_points" binding:"min=0"`
	Category    string `json:"category" binding:"required,oneof=co_curricular cep"`
}

type SearchEventsQuery struct {
	Q string `form:"q" binding:"required,max=100"`
}
