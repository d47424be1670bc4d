package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/abdulachik/etrimage/internal/pipeline"
)

// Message levels map to CSS classes in the page template.
const (
	levelError   = "error"
	levelWarning = "warning"
	levelSuccess = "success"
	levelInfo    = "info"
)

type message struct {
	Level string
	Text  string
	Hint  string
}

// errorMessage turns a pipeline failure into the Polish text shown in the UI
// and the HTTP status of the response. state is the session state after the
// failed call and tells analysis failures from render failures.
func errorMessage(err error, state pipeline.State) (*message, int) {
	switch pipeline.KindOf(err) {
	case pipeline.ConfigMissing:
		return &message{
			Level: levelError,
			Text:  "Brak konfiguracji: nie ustawiono klucza API dla wybranego dostawcy.",
			Hint:  "Uzupełnij klucz w pliku .env (zobacz .env.example) i uruchom aplikację ponownie.",
		}, http.StatusServiceUnavailable

	case pipeline.ValidationError:
		switch {
		case errors.Is(err, pipeline.ErrEmptyText):
			return &message{Level: levelWarning, Text: "Wpisz tekst do przetworzenia."}, http.StatusBadRequest
		case errors.Is(err, pipeline.ErrBusy):
			return &message{Level: levelWarning, Text: "Trwa generowanie obrazu. Poczekaj na wynik."}, http.StatusConflict
		case errors.Is(err, pipeline.ErrNothingToRate):
			return &message{Level: levelWarning, Text: "Najpierw wygeneruj obraz, a potem go oceń."}, http.StatusConflict
		}
		detail := err
		var pe *pipeline.Error
		if errors.As(err, &pe) && pe.Err != nil {
			detail = pe.Err
		}
		return &message{
			Level: levelWarning,
			Text:  fmt.Sprintf("Nieprawidłowe dane: %v", detail),
			Hint:  "Popraw dane i spróbuj ponownie.",
		}, http.StatusBadRequest

	case pipeline.ServiceCallFailed:
		if state == pipeline.RenderFailed {
			return &message{
				Level: levelError,
				Text:  "Nie udało się wygenerować obrazu.",
				Hint:  "Sprawdź, czy klucz ma dostęp do modelu obrazów, albo włącz PLACEHOLDER_FALLBACK.",
			}, http.StatusBadGateway
		}
		return &message{
			Level: levelError,
			Text:  "Nie udało się przeanalizować tekstu.",
			Hint:  "Sprawdź klucz API, nazwę modelu i połączenie sieciowe, potem spróbuj ponownie.",
		}, http.StatusBadGateway

	case pipeline.EmptyResponse:
		return &message{
			Level: levelError,
			Text:  "Model nie zwrócił żadnego promptu.",
			Hint:  "Przeformułuj tekst albo zmień temperaturę i spróbuj ponownie.",
		}, http.StatusBadGateway

	case pipeline.PersistenceFailed:
		return &message{
			Level: levelError,
			Text:  "Nie udało się zapisać oceny.",
			Hint:  "Sprawdź, czy katalog obrazów i plik ocen są zapisywalne, i oceń ponownie.",
		}, http.StatusInternalServerError
	}

	return &message{Level: levelError, Text: "Nieoczekiwany błąd: " + err.Error()}, http.StatusInternalServerError
}

var (
	msgRateLimited = &message{
		Level: levelWarning,
		Text:  "Zbyt wiele zapytań. Odczekaj chwilę i spróbuj ponownie.",
	}
	msgInvalidForm = &message{
		Level: levelWarning,
		Text:  "Nieprawidłowe dane formularza.",
		Hint:  "Temperatury muszą być liczbami z zakresu 0.0 - 1.0.",
	}
	msgInvalidRating = &message{
		Level: levelWarning,
		Text:  "Wybierz ocenę: Dobrze albo Źle.",
	}
)

func savedMessage(rating, filename string) *message {
	return &message{
		Level: levelSuccess,
		Text:  fmt.Sprintf("Dziękujemy! Ocena %q zapisana jako %s.", rating, filename),
	}
}
