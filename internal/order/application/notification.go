package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

var ErrMalformedNotification = errors.New("notification without resolvable id or topic")

// Notification is the (id, topic) key of a gateway webhook delivery.
type Notification struct {
	ID    string
	Topic string
}

// flexString accepts both JSON strings and numbers; the provider sends ids
// either way depending on the notification flavour.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return nil
	}
	*f = flexString(n.String())
	return nil
}

type notificationBody struct {
	Topic    flexString `json:"topic"`
	Type     flexString `json:"type"`
	ID       flexString `json:"id"`
	Resource flexString `json:"resource"`
	Data     *struct {
		ID flexString `json:"id"`
	} `json:"data"`
}

// ParseNotification resolves the notification key from the query string and
// the JSON body. Per field the first non-empty source wins:
//
//	topic: query topic, body topic, body type
//	id:    query id, body data.id, last segment of body resource, body id
//
// A body that is not a JSON object is treated as empty.
func ParseNotification(query url.Values, body []byte) (Notification, error) {
	var b notificationBody
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &b); err != nil {
			b = notificationBody{}
		}
	}

	var dataID string
	if b.Data != nil {
		dataID = string(b.Data.ID)
	}

	n := Notification{
		Topic: firstNonBlank(query.Get("topic"), string(b.Topic), string(b.Type)),
		ID:    firstNonBlank(query.Get("id"), dataID, lastSegment(string(b.Resource)), string(b.ID)),
	}
	if n.Topic == "" || n.ID == "" {
		return Notification{}, ErrMalformedNotification
	}
	return n, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// lastSegment returns the final path element of a resource reference, which
// may be a full URL or a bare id.
func lastSegment(resource string) string {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return ""
	}
	if u, err := url.Parse(resource); err == nil && u.Path != "" {
		resource = u.Path
	}
	resource = strings.TrimRight(resource, "/")
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}
