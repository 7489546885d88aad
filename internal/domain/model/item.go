package model

// ContentKind classifies the payload of a channel item.
type ContentKind string

const (
	KindText      ContentKind = "text"
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindDocument  ContentKind = "document"
	KindAudio     ContentKind = "audio"
	KindVoice     ContentKind = "voice"
	KindAnimation ContentKind = "animation"
	KindSticker   ContentKind = "sticker"
	KindPoll      ContentKind = "poll"
	KindLocation  ContentKind = "location"
	KindUnknown   ContentKind = "unknown"
)

var knownKinds = map[ContentKind]struct{}{
	KindText:      {},
	KindPhoto:     {},
	KindVideo:     {},
	KindDocument:  {},
	KindAudio:     {},
	KindVoice:     {},
	KindAnimation: {},
	KindSticker:   {},
	KindPoll:      {},
	KindLocation:  {},
}

// ValidContentKind reports whether k may appear in a source's allow-list.
func ValidContentKind(k ContentKind) bool {
	_, ok := knownKinds[k]
	return ok
}

// Item is one unit of content fetched from a source channel. IDs are assigned
// by the platform and are strictly increasing within a channel.
type Item struct {
	ChannelID int64
	ID        int64
	Kind      ContentKind
	Text      string // message text, or the caption for media
	FileID    string // platform file reference; empty for text-only items
}

// Kinds returns every content kind the item carries. Media with a caption
// carries its media kind plus text. An unclassifiable item degrades to text
// so it is never silently invisible to filters.
func (i Item) Kinds() []ContentKind {
	var kinds []ContentKind
	if i.Kind != "" && i.Kind != KindUnknown {
		kinds = append(kinds, i.Kind)
	}
	if i.Text != "" && i.Kind != KindText {
		kinds = append(kinds, KindText)
	}
	if len(kinds) == 0 {
		kinds = append(kinds, KindText)
	}
	return kinds
}

// PrimaryKind is the single kind used for per-kind stats breakdowns.
func (i Item) PrimaryKind() ContentKind {
	if i.Kind != "" && i.Kind != KindUnknown {
		return i.Kind
	}
	if i.Text != "" {
		return KindText
	}
	return KindUnknown
}

// AcceptedBy reports whether the item carries at least one kind present in
// allowed. An empty allow-list accepts everything.
func (i Item) AcceptedBy(allowed []ContentKind) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, k := range i.Kinds() {
		for _, a := range allowed {
			if k == a {
				return true
			}
		}
	}
	return false
}
