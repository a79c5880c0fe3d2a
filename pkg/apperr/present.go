package apperr

import "net/http"

// Presentation is the user-visible shape of a failure. Internal error text
// stays in logs; users get a short title, message and a suggested action.
type Presentation struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	Suggestion  string `json:"suggestion"`
}

// Present maps err to its user-facing form.
func Present(err error) Presentation {
	kind := KindOf(err)
	switch kind {
	case KindNetwork:
		return Presentation{
			Title:       "Connection problem",
			Message:     "The service could not be reached.",
			Recoverable: true,
			Suggestion:  "Check your connection and try again.",
		}
	case KindRateLimited:
		return Presentation{
			Title:       "Too many requests",
			Message:     "The AI service is rate limiting requests.",
			Recoverable: true,
			Suggestion:  "Wait a moment and try again.",
		}
	case KindUnavailable:
		return Presentation{
			Title:       "Service unavailable",
			Message:     "The AI service is temporarily unavailable.",
			Recoverable: true,
			Suggestion:  "Try again shortly.",
		}
	case KindMissingConfig:
		return Presentation{
			Title:       "Configuration error",
			Message:     "The application is missing required credentials.",
			Recoverable: false,
			Suggestion:  "Contact your administrator.",
		}
	case KindValidation:
		return Presentation{
			Title:       "Invalid input",
			Message:     "The request could not be processed as given.",
			Recoverable: false,
			Suggestion:  "Correct the input and resubmit.",
		}
	case KindNotFound:
		return Presentation{
			Title:       "Not found",
			Message:     "The requested record does not exist.",
			Recoverable: false,
			Suggestion:  "Verify the identifier and try again.",
		}
	case KindConflict:
		return Presentation{
			Title:       "Conflict",
			Message:     "The operation conflicts with work already in progress.",
			Recoverable: false,
			Suggestion:  "Wait for the current operation to finish, then refresh.",
		}
	case KindExtraction:
		return Presentation{
			Title:       "Document not readable",
			Message:     "Text could not be extracted from the uploaded file.",
			Recoverable: false,
			Suggestion:  "Upload a valid PDF, HTML, or plain-text document.",
		}
	case KindChunking:
		return Presentation{
			Title:       "Document not usable",
			Message:     "The document produced no indexable text.",
			Recoverable: false,
			Suggestion:  "Check that the document contains readable text.",
		}
	case KindEmbedding:
		return Presentation{
			Title:       "Indexing failed",
			Message:     "The document could not be indexed for search.",
			Recoverable: true,
			Suggestion:  "Try ingesting the document again.",
		}
	case KindVectorSearch:
		return Presentation{
			Title:       "Search failed",
			Message:     "The similarity search could not be completed.",
			Recoverable: true,
			Suggestion:  "Try the search again.",
		}
	case KindGeneration:
		return Presentation{
			Title:       "Generation failed",
			Message:     "The AI service returned an unusable response.",
			Recoverable: true,
			Suggestion:  "Try the request again.",
		}
	default:
		return Presentation{
			Title:       "Unexpected error",
			Message:     "An unexpected error occurred.",
			Recoverable: true,
			Suggestion:  "Try again.",
		}
	}
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindExtraction, KindChunking:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNetwork, KindUnavailable, KindEmbedding, KindGeneration:
		return http.StatusBadGateway
	case KindMissingConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
