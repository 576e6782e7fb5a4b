// Package errs categorizes errors the way spec §7 requires: by what
// happened, not by which layer raised it, so the pipeline and the
// background loops can apply the right policy (retry, surface, fatal)
// without type-switching over package-private error types.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Category is one of the ten error kinds spec §7 defines a policy for.
type Category string

const (
	CategoryConfiguration      Category = "configuration"
	CategoryMigration          Category = "migration"
	CategoryProviderTransient  Category = "provider_transient"
	CategoryProviderPermanent  Category = "provider_permanent"
	CategorySandboxDeny        Category = "sandbox_deny"
	CategoryMarkerInvalid      Category = "marker_invalid"
	CategoryDBTransient        Category = "db_transient"
	CategoryDBPermanent        Category = "db_permanent"
	CategoryChannelSendFailure Category = "channel_send_failure"
	CategoryTaskRetryExhausted Category = "task_retry_exhausted"
)

// Fatal reports whether this category halts startup outright (spec §7:
// configuration, migration and permanent DB errors are fatal; everything
// else is handled in place while the runtime keeps serving).
func (c Category) Fatal() bool {
	switch c {
	case CategoryConfiguration, CategoryMigration, CategoryDBPermanent:
		return true
	default:
		return false
	}
}

// Retryable reports whether the category's own policy calls for a retry
// before surfacing to the user.
func (c Category) Retryable() bool {
	switch c {
	case CategoryProviderTransient, CategoryDBTransient:
		return true
	default:
		return false
	}
}

// Error is the categorized error every component returns across its
// boundary. Cause carries the underlying error for logging; Message is
// what a user may eventually see (never the cause's raw text, per §7's
// ban on stack traces/paths/model identifiers in user-visible copy).
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause under category with a human-facing message.
func New(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is (or wraps) an *Error of the given category.
func Is(err error, category Category) bool {
	e, ok := As(err)
	return ok && e.Category == category
}

// Exit codes per spec §6.5.
const (
	ExitStartupFailure   = 1
	ExitConfigError      = 2
	ExitAuthRequired     = 3
)

// ExitCode maps a top-level error to the CLI exit code spec §6.5 names.
// Anything uncategorized falls back to a generic startup failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok {
		switch e.Category {
		case CategoryConfiguration, CategoryMigration:
			return ExitConfigError
		}
	}
	return ExitStartupFailure
}

// Language is one of the eight locales spec §7 requires user-visible
// messages to be translated into.
type Language string

const (
	LangEnglish    Language = "en"
	LangSpanish    Language = "es"
	LangPortuguese Language = "pt"
	LangFrench     Language = "fr"
	LangGerman     Language = "de"
	LangItalian    Language = "it"
	LangDutch      Language = "nl"
	LangRussian    Language = "ru"
)

// friendlyMessages holds the canned, never-leaks-internals copy shown to
// users for each category, in each supported language. English is the
// fallback for any language not yet translated for a given category.
var friendlyMessages = map[Category]map[Language]string{
	CategoryProviderTransient: {
		LangEnglish:    "I had trouble reaching my reasoning engine just now. Give me a moment and try again.",
		LangSpanish:    "Tuve problemas para conectar con mi motor de razonamiento. Dame un momento e inténtalo de nuevo.",
		LangPortuguese: "Tive problemas para acessar meu motor de raciocínio agora. Me dê um momento e tente novamente.",
		LangFrench:     "J'ai eu du mal à joindre mon moteur de raisonnement. Accorde-moi un instant et réessaie.",
		LangGerman:     "Ich hatte gerade Probleme, meine Denk-Engine zu erreichen. Gib mir einen Moment und versuch es erneut.",
		LangItalian:    "Ho avuto problemi a contattare il mio motore di ragionamento. Dammi un momento e riprova.",
		LangDutch:      "Ik had net moeite om mijn redeneer-engine te bereiken. Geef me een moment en probeer het opnieuw.",
		LangRussian:    "У меня только что возникли проблемы со связью с движком. Дай мне момент и попробуй ещё раз.",
	},
	CategoryProviderPermanent: {
		LangEnglish:    "I couldn't complete that request. Something about how I'm configured is blocking it.",
		LangSpanish:    "No pude completar esa solicitud. Algo en mi configuración lo está bloqueando.",
		LangPortuguese: "Não consegui concluir essa solicitação. Algo na minha configuração está bloqueando.",
		LangFrench:     "Je n'ai pas pu terminer cette demande. Quelque chose dans ma configuration bloque cela.",
		LangGerman:     "Ich konnte diese Anfrage nicht abschließen. Etwas an meiner Konfiguration blockiert es.",
		LangItalian:    "Non sono riuscito a completare questa richiesta. Qualcosa nella mia configurazione lo blocca.",
		LangDutch:      "Ik kon dat verzoek niet voltooien. Iets in mijn configuratie blokkeert het.",
		LangRussian:    "Я не смог выполнить этот запрос. Что-то в моих настройках блокирует это.",
	},
	CategoryTaskRetryExhausted: {
		LangEnglish:    "I tried to finish that task a few times but couldn't get it done.",
		LangSpanish:    "Intenté terminar esa tarea varias veces, pero no pude completarla.",
		LangPortuguese: "Tentei terminar essa tarefa algumas vezes, mas não consegui.",
		LangFrench:     "J'ai essayé de terminer cette tâche plusieurs fois sans succès.",
		LangGerman:     "Ich habe versucht, diese Aufgabe mehrmals abzuschließen, aber es hat nicht geklappt.",
		LangItalian:    "Ho provato a completare quel compito alcune volte senza riuscirci.",
		LangDutch:      "Ik heb geprobeerd die taak een paar keer af te ronden, maar het is niet gelukt.",
		LangRussian:    "Я несколько раз пытался выполнить эту задачу, но не смог.",
	},
}

// FriendlyMessage returns the localized user-facing copy for category in
// lang, falling back to English for unrecognized categories or
// untranslated languages.
func FriendlyMessage(category Category, lang Language) string {
	table, ok := friendlyMessages[category]
	if !ok {
		return "Something went wrong on my end. Please try again."
	}
	if msg, ok := table[lang]; ok {
		return msg
	}
	return table[LangEnglish]
}

// ParseLanguage normalizes a stored or detected language tag to one of
// the eight supported Language values, defaulting to English.
func ParseLanguage(tag string) Language {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "es":
		return LangSpanish
	case "pt":
		return LangPortuguese
	case "fr":
		return LangFrench
	case "de":
		return LangGerman
	case "it":
		return LangItalian
	case "nl":
		return LangDutch
	case "ru":
		return LangRussian
	default:
		return LangEnglish
	}
}
