package dto

type UpsertDocumentRequest struct {
	ID    string `json:"id" binding:"required"`
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
	URL   string `json:"url"`
}

type UpsertDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type StatsResponse struct {
	DocumentCount int64 `json:"document_count"`
}
