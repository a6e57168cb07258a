package feature

import (
	"github.com/pkg/errors"
	"sort"
)

// StringResolver maps strings to their global codes and back. Code 0 means the string has no global code.
type StringResolver interface {
	Code(s string) int
	String(code int) string
}

// TagValue holds the text of a value and, when the value is a global string, its code (>0).
type TagValue struct {
	Code int
	Text string
}

func (v TagValue) IsGlobal() bool {
	return v.Code > 0
}

type Tag struct {
	KeyCode int // 0 for local keys
	Key     string
	Value   TagValue
}

// Tags is the tag table of one feature. Tags with a global key are sorted by key code so that the matcher can look
// them up by code, all others are sorted by their key text.
type Tags struct {
	global []Tag
	local  []Tag
}

// NewTags creates a tag table. The order of the given tags is irrelevant, but keys must be unique.
func NewTags(tags ...Tag) (Tags, error) {
	result := Tags{}
	seen := map[string]bool{}

	for _, tag := range tags {
		if seen[tag.Key] {
			return Tags{}, errors.Errorf("Duplicate tag key '%s'", tag.Key)
		}
		seen[tag.Key] = true

		if tag.KeyCode > 0 {
			result.global = append(result.global, tag)
		} else {
			result.local = append(result.local, tag)
		}
	}

	sort.Slice(result.global, func(i, j int) bool {
		return result.global[i].KeyCode < result.global[j].KeyCode
	})
	sort.Slice(result.local, func(i, j int) bool {
		return result.local[i].Key < result.local[j].Key
	})

	return result, nil
}

// TagsFromMap turns a plain key-value map into a tag table, using the given resolver to determine global codes.
func TagsFromMap(m map[string]string, strings StringResolver) Tags {
	tags := make([]Tag, 0, len(m))
	for key, value := range m {
		tags = append(tags, NewTag(key, value, strings))
	}

	// Map keys are unique, so this cannot fail.
	result, _ := NewTags(tags...)
	return result
}

func NewTag(key string, value string, strings StringResolver) Tag {
	tag := Tag{
		Key:   key,
		Value: TagValue{Text: value},
	}
	if strings != nil {
		tag.KeyCode = strings.Code(key)
		tag.Value.Code = strings.Code(value)
	}
	return tag
}

// Global returns the value of the tag with the given global key code.
func (t Tags) Global(keyCode int) (TagValue, bool) {
	i := sort.Search(len(t.global), func(i int) bool {
		return t.global[i].KeyCode >= keyCode
	})
	if i < len(t.global) && t.global[i].KeyCode == keyCode {
		return t.global[i].Value, true
	}
	return TagValue{}, false
}

// Local returns the value of the tag with the given key that has no global code.
func (t Tags) Local(key string) (TagValue, bool) {
	i := sort.Search(len(t.local), func(i int) bool {
		return t.local[i].Key >= key
	})
	if i < len(t.local) && t.local[i].Key == key {
		return t.local[i].Value, true
	}
	return TagValue{}, false
}

// Get looks up a value by its key text regardless of whether the key is global.
func (t Tags) Get(key string) (string, bool) {
	if value, ok := t.Local(key); ok {
		return value.Text, true
	}
	for _, tag := range t.global {
		if tag.Key == key {
			return tag.Value.Text, true
		}
	}
	return "", false
}

func (t Tags) Len() int {
	return len(t.global) + len(t.local)
}

func (t Tags) IsEmpty() bool {
	return t.Len() == 0
}

// All returns the global tags followed by the local tags.
func (t Tags) All() []Tag {
	result := make([]Tag, 0, t.Len())
	result = append(result, t.global...)
	return append(result, t.local...)
}

func (t Tags) ToMap() map[string]string {
	result := make(map[string]string, t.Len())
	for _, tag := range t.All() {
		result[tag.Key] = tag.Value.Text
	}
	return result
}
