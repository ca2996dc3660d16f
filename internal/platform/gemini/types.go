package gemini

// promptData is the input to the prompt template.
type promptData struct {
	Keyword  string
	Settings string
}

// responseSchema is the JSON structure the model is instructed to return.
type responseSchema struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
