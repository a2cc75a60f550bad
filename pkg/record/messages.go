package record

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// MessagesPath is the location of the model conversation seed.
const MessagesPath = "model.messages"

// RoleSystem marks the system prompt message.
const RoleSystem = "system"

// SystemMessageIndex returns the index of the first message with the system
// role. Later system messages are not considered.
func (r Record) SystemMessageIndex() (int, bool) {
	msgs := r.Get(MessagesPath)
	if !msgs.IsArray() {
		return 0, false
	}
	idx, found := 0, false
	i := 0
	msgs.ForEach(func(_, m gjson.Result) bool {
		if m.Get("role").String() == RoleSystem {
			idx, found = i, true
			return false
		}
		i++
		return true
	})
	return idx, found
}

// MessageContentPath returns the path of the content field of message i.
func MessageContentPath(i int) string {
	return fmt.Sprintf("%s.%d.content", MessagesPath, i)
}

// PrependMessage inserts {role, content} as the first element of
// model.messages, creating model and messages when missing.
func (r *Record) PrependMessage(role, content string) error {
	var buf bytes.Buffer
	buf.WriteString(`[{"role":`)
	buf.Write(EncodeString(role))
	buf.WriteString(`,"content":`)
	buf.Write(EncodeString(content))
	buf.WriteByte('}')
	if msgs := r.Get(MessagesPath); msgs.IsArray() {
		msgs.ForEach(func(_, m gjson.Result) bool {
			buf.WriteByte(',')
			buf.WriteString(m.Raw)
			return true
		})
	}
	buf.WriteByte(']')
	if err := r.EnsureObject("model"); err != nil {
		return err
	}
	return r.SetRaw(MessagesPath, buf.Bytes())
}
