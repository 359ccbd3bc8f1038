package dto

// TalebotMessage is one turn of the assistant conversation.
type TalebotMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// TalebotRequest carries the conversation so far; the last entry is the
// user's new prompt.
type TalebotRequest struct {
	Messages []TalebotMessage `json:"messages" validate:"required,min=1,max=40,dive"`
}

// TalebotResponse carries the assistant's reply.
type TalebotResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// UploadResponse describes a stored media object.
type UploadResponse struct {
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
