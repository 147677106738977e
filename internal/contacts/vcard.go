package contacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	fieldAppleDate  = "X-ABDATE"
	fieldAppleLabel = "X-ABLABEL"
)

var contactNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tend.contacts"))

var (
	datesWithYear = []string{
		"2006-01-02",
		"20060102",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"20060102T150405Z",
	}
	datesWithoutYear = []string{"--01-02", "--0102"}
)

// VCardSource reads contacts from a .vcf file or a directory of .vcf files.
// The address book is re-read on every call; concurrent reads share one
// decode.
type VCardSource struct {
	Path string
	Log  logrus.FieldLogger

	group singleflight.Group
}

func NewVCardSource(path string, log logrus.FieldLogger) *VCardSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &VCardSource{Path: path, Log: log.WithField("component", "contacts")}
}

type vcardEntry struct {
	contact DeviceContact
	events  DeviceEvents
	// seed is set when the id was derived from card fields rather than UID.
	seed string
}

func (s *VCardSource) ListContacts(ctx context.Context, query string) ([]DeviceContact, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]DeviceContact, 0, len(entries))
	for _, e := range entries {
		if needle != "" && !strings.Contains(strings.ToLower(e.contact.Name), needle) &&
			!strings.Contains(strings.ToLower(e.contact.NickName), needle) {
			continue
		}
		out = append(out, e.contact)
	}
	col := collate.New(language.Und)
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *VCardSource) GetContactEvents(ctx context.Context, id string) (DeviceEvents, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return DeviceEvents{}, err
	}
	for _, e := range entries {
		if e.contact.ID == id {
			return e.events, nil
		}
	}
	return DeviceEvents{}, fmt.Errorf("%w: %q", ErrContactNotFound, id)
}

// load shares one decode between concurrent callers. The decode runs detached
// from any single caller's cancellation; each caller waits on its own ctx.
func (s *VCardSource) load(ctx context.Context) ([]vcardEntry, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.Path, func() (any, error) {
		return s.readBook(shared)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	entries, ok := res.Val.([]vcardEntry)
	if !ok {
		return nil, fmt.Errorf("contacts: unexpected singleflight result type %T", res.Val)
	}
	return entries, nil
}

func (s *VCardSource) readBook(ctx context.Context) ([]vcardEntry, error) {
	if strings.TrimSpace(s.Path) == "" {
		return nil, fmt.Errorf("%w: no address book configured", ErrPermissionDenied)
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, err
	}

	files := []string{s.Path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(s.Path, "*.vcf"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	out := make([]vcardEntry, 0)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := s.decodeFile(ctx, path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
			}
			return nil, err
		}
		out = append(out, entries...)
	}
	disambiguate(out)
	return out, nil
}

// disambiguate gives every repeated fallback id a distinct value by mixing
// the occurrence number into its seed. The first card keeps the plain id.
func disambiguate(entries []vcardEntry) {
	seen := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.seed == "" {
			continue
		}
		seen[e.contact.ID]++
		if n := seen[e.contact.ID]; n > 1 {
			e.contact.ID = uuid.NewSHA1(contactNamespace, []byte(fmt.Sprintf("%s#%d", e.seed, n))).String()
		}
	}
}

func (s *VCardSource) decodeFile(ctx context.Context, path string) ([]vcardEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return s.decode(ctx, f)
}

func (s *VCardSource) decode(ctx context.Context, r io.Reader) ([]vcardEntry, error) {
	dec := vcard.NewDecoder(r)
	out := make([]vcardEntry, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a malformed card ends the stream; keep what was decoded
			s.Log.WithError(err).Warn("vcard decode stopped")
			break
		}
		entry, ok := entryFromCard(card)
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func entryFromCard(card vcard.Card) (vcardEntry, bool) {
	name := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	if name == "" {
		if n := card.Name(); n != nil {
			name = strings.TrimSpace(strings.Join(nonEmpty(n.GivenName, n.FamilyName), " "))
		}
	}
	if name == "" {
		return vcardEntry{}, false
	}

	birthday := strings.TrimSpace(card.Value(vcard.FieldBirthday))
	nick := strings.TrimSpace(card.Value(vcard.FieldNickname))
	id := strings.TrimPrefix(strings.TrimSpace(card.Value(vcard.FieldUID)), "urn:uuid:")
	seed := ""
	if id == "" {
		seed = strings.Join([]string{
			name,
			birthday,
			nick,
			strings.Join(card.Values(vcard.FieldEmail), ","),
			strings.Join(card.Values(vcard.FieldTelephone), ","),
		}, "|")
		id = uuid.NewSHA1(contactNamespace, []byte(seed)).String()
	}

	entry := vcardEntry{
		seed: seed,
		contact: DeviceContact{
			ID:          id,
			Name:        name,
			NickName:    nick,
			ImageURI:    photoURI(card),
			Description: strings.TrimSpace(card.Value(vcard.FieldNote)),
		},
	}

	if birthday != "" {
		if month, day, year, err := parseDate(birthday); err == nil {
			entry.events.Birthday = &DeviceDate{Label: "Birthday", Month: month, Day: day, Year: year}
		}
	}
	for _, f := range card[vcard.FieldAnniversary] {
		if month, day, year, err := parseDate(strings.TrimSpace(f.Value)); err == nil {
			entry.events.Dates = append(entry.events.Dates, DeviceDate{Label: "Anniversary", Month: month, Day: day, Year: year})
		}
	}
	for _, f := range card[fieldAppleDate] {
		month, day, year, err := parseDate(strings.TrimSpace(f.Value))
		if err != nil {
			continue
		}
		entry.events.Dates = append(entry.events.Dates, DeviceDate{
			Label: appleLabel(card, f.Group),
			Month: month,
			Day:   day,
			Year:  year,
		})
	}
	return entry, true
}

// appleLabel resolves the X-ABLabel sharing the date's group, unwrapping the
// "_$!<Anniversary>!$_" form used for built-in labels.
func appleLabel(card vcard.Card, group string) string {
	if group == "" {
		return ""
	}
	for _, f := range card[fieldAppleLabel] {
		if f.Group != group {
			continue
		}
		label := strings.TrimSpace(f.Value)
		label = strings.TrimPrefix(label, "_$!<")
		label = strings.TrimSuffix(label, ">!$_")
		return label
	}
	return ""
}

func photoURI(card vcard.Card) string {
	v := strings.TrimSpace(card.Value(vcard.FieldPhoto))
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") ||
		strings.HasPrefix(v, "file:") || strings.HasPrefix(v, "data:") {
		return v
	}
	return ""
}

// parseDate accepts full vCard dates and the truncated --MM-DD forms.
func parseDate(value string) (int, int, *int, error) {
	for _, layout := range datesWithYear {
		if t, err := time.Parse(layout, value); err == nil {
			year := t.Year()
			return int(t.Month()), t.Day(), &year, nil
		}
	}
	for _, layout := range datesWithoutYear {
		if t, err := time.Parse(layout, value); err == nil {
			return int(t.Month()), t.Day(), nil, nil
		}
	}
	return 0, 0, nil, fmt.Errorf("contacts: unrecognized date %q", value)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
