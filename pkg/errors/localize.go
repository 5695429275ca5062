package errors

import "strings"

var userMessages = map[string]map[ErrorCode]string{
	"ru": {
		ErrNotFound:        "Данные не найдены",
		ErrBadRequest:      "Проверьте правильность введённых данных",
		ErrUnauthorized:    "Необходимо войти в систему",
		ErrForbidden:       "Недостаточно прав для выполнения операции",
		ErrInternal:        "Произошла ошибка. Попробуйте позже",
		ErrConflict:        "Такая запись уже существует",
		ErrTimeout:         "Сервис не ответил вовремя. Попробуйте ещё раз",
		ErrUnavailable:     "Нет соединения с сервером. Проверьте подключение к интернету",
		ErrTooManyRequests: "Слишком много запросов. Попробуйте позже",
	},
	"en": {
		ErrNotFound:        "Nothing was found",
		ErrBadRequest:      "Please check the data you entered",
		ErrUnauthorized:    "Please sign in",
		ErrForbidden:       "You are not allowed to do that",
		ErrInternal:        "Something went wrong. Please try again later",
		ErrConflict:        "This record already exists",
		ErrTimeout:         "The service did not respond in time. Please try again",
		ErrUnavailable:     "No connection to the server. Check your internet connection",
		ErrTooManyRequests: "Too many requests. Please try again later",
	},
}

// Localize returns the user-facing message for err in the given language.
// Unknown languages fall back to Russian.
func Localize(err error, lang string) string {
	msgs, ok := userMessages[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		msgs = userMessages["ru"]
	}
	if msg, ok := msgs[CodeOf(err)]; ok {
		return msg
	}
	return msgs[ErrInternal]
}
