// Package l10n translates the user-facing strings of the notification mails.
package l10n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	MsgNewLoginLocation = "New login location detected"
	MsgSuspiciousBody   = "A new login into your account was detected. The IP address %s was classified as suspicious. If this was you, you can ignore this message. Otherwise you should change your password."
	MsgMoreInfoText     = "You can get more info by pressing the button which will open %s and show info about the suspicious IP-address."
	MsgMoreInfoButton   = "More information ↗"
)

var german = map[string]string{
	MsgNewLoginLocation: "Neuer Anmeldeort erkannt",
	MsgSuspiciousBody:   "Es wurde eine neue Anmeldung in Ihrem Konto festgestellt. Die IP-Adresse %s wurde als verdächtig eingestuft. Wenn Sie das waren, können Sie diese Nachricht ignorieren. Andernfalls sollten Sie Ihr Passwort ändern.",
	MsgMoreInfoText:     "Sie können weitere Informationen erhalten, indem Sie auf die Schaltfläche klicken, die %s öffnet und Informationen über die verdächtige IP-Adresse anzeigt.",
	MsgMoreInfoButton:   "Weitere Informationen ↗",
}

var supported = []language.Tag{language.English, language.German}

var (
	matcher = language.NewMatcher(supported)
	cat     = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range german {
		if err := b.SetString(language.German, key, msg); err != nil {
			panic("l10n: invalid German catalog entry: " + err.Error())
		}
	}
	return b
}

// Localizer formats messages for one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a localizer for the best supported match of lang (a BCP 47
// tag such as "de" or "de-AT"). Unknown or malformed tags get English.
func New(lang string) *Localizer {
	tag := language.English
	if parsed, err := language.Parse(lang); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// T translates text and substitutes %s placeholders with args.
func (l *Localizer) T(text string, args ...any) string {
	return l.printer.Sprintf(text, args...)
}

// Language returns the tag this localizer translates into.
func (l *Localizer) Language() string {
	return l.tag.String()
}
