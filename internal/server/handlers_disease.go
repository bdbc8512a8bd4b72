package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *App) chatbot(c *gin.Context) {
	var payload chatbotRequest
	if !mustJSON(c, &payload) {
		return
	}
	query := strings.TrimSpace(payload.Query)
	if query == "" {
		writeError(c, http.StatusBadRequest, "Please enter a question")
		return
	}
	selected := payload.Language
	if selected == "" {
		selected = languageAuto
	}

	detected := a.detectLanguage(c.Request.Context(), query)
	responseLang := resolveLanguage(selected, detected)

	answer, err := a.ai.Generate(c.Request.Context(), GenerateRequest{
		Prompt: "Agriculture expert chatbot. Answer this question: '" + query + "'. " +
			"Respond only in " + languageName(responseLang) + ", do not include any other language.",
	})
	if err != nil {
		a.log.Error("chatbot oracle call failed", zap.Error(err))
		answer = "No response from AI in " + languageName(responseLang) + "."
	}

	c.JSON(http.StatusOK, gin.H{
		"response":          sanitizeText(answer),
		"detected_language": detected,
		"response_language": responseLang,
		"reset_language_to": languageAuto,
	})
}

// diagnoseDisease accepts either an uploaded plant photo or a free-text
// description (multipart form) and returns a sanitized diagnosis with a
// treatment-video link appended.
func (a *App) diagnoseDisease(c *gin.Context) {
	language := c.PostForm("language")
	if language == "" {
		language = languageDefault
	}

	if file, err := c.FormFile("image"); err == nil && file.Filename != "" {
		opened, err := file.Open()
		if err != nil {
			writeError(c, http.StatusBadRequest, "Could not read uploaded image")
			return
		}
		defer opened.Close()
		imageData, err := io.ReadAll(opened)
		if err != nil {
			writeError(c, http.StatusBadRequest, "Could not read uploaded image")
			return
		}

		responseLang := resolveLanguage(language, languageDefault)
		answer, err := a.ai.Generate(c.Request.Context(), GenerateRequest{
			Prompt: "Identify the plant disease and provide its name, causes, and treatment. " +
				"Respond in " + languageName(responseLang) + ".",
			ImageJPEG: imageData,
		})
		if err != nil {
			a.log.Error("disease image analysis failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "Error processing image")
			return
		}
		c.JSON(http.StatusOK, gin.H{"disease_info": a.withTreatmentVideo(c, sanitizeText(answer))})
		return
	}

	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		writeError(c, http.StatusBadRequest, "Please provide an image or a description")
		return
	}

	detected := a.detectLanguage(c.Request.Context(), description)
	responseLang := resolveLanguage(language, detected)
	answer, err := a.ai.Generate(c.Request.Context(), GenerateRequest{
		Prompt: "Based on this description: '" + description + "', identify the plant disease and provide its name, causes, and treatment. " +
			"Respond only in " + languageName(responseLang) + ", do not include any other language.",
	})
	if err != nil {
		a.log.Error("disease description analysis failed", zap.Error(err))
		answer = "No response from AI in " + languageName(responseLang) + "."
	}
	c.JSON(http.StatusOK, gin.H{"disease_info": a.withTreatmentVideo(c, sanitizeText(answer))})
}

// withTreatmentVideo appends a video link for the disease named on the first
// line of the diagnosis. Video lookup failures degrade to an error string.
func (a *App) withTreatmentVideo(c *gin.Context, diagnosis string) string {
	diseaseName := firstSanitizedLine(diagnosis)
	videoURL := a.video.Search(c.Request.Context(), diseaseName+" disease treatment")
	return diagnosis + "<br><br>\U0001F4FA Watch this video: <a href='" + videoURL + "' target='_blank'>" + videoURL + "</a>"
}
