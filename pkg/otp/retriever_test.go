package otp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/drip/pkg/types"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type fakeInbox struct {
	msg     *gmail.Message
	err     error
	queries []string
}

func (f *fakeInbox) LatestMessage(ctx context.Context, query string) (*gmail.Message, error) {
	f.queries = append(f.queries, query)
	return f.msg, f.err
}

func encode(body string) string {
	return base64.URLEncoding.EncodeToString([]byte(body))
}

func multipart(body string) *gmail.Message {
	return &gmail.Message{
		Id: "msg-1",
		Payload: &gmail.MessagePart{
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode(body)}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("000000")}},
			},
		},
	}
}

func TestFetchCode(t *testing.T) {
	tests := []struct {
		name     string
		inbox    *fakeInbox
		expected string
		wantErr  bool
	}{
		{
			name:     "code in first part",
			inbox:    &fakeInbox{msg: multipart("<p>Your verification code is <b>482913</b></p>")},
			expected: "482913",
		},
		{
			name: "single part message",
			inbox: &fakeInbox{msg: &gmail.Message{
				Id:      "msg-2",
				Payload: &gmail.MessagePart{Body: &gmail.MessagePartBody{Data: encode("code: 123456.")}},
			}},
			expected: "123456",
		},
		{
			name: "nested parts",
			inbox: &fakeInbox{msg: &gmail.Message{
				Id: "msg-3",
				Payload: &gmail.MessagePart{Parts: []*gmail.MessagePart{
					{MimeType: "multipart/alternative", Body: &gmail.MessagePartBody{}, Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("use 654321 to sign in")}},
					}},
				}},
			}},
			expected: "654321",
		},
		{
			name:    "no matching message",
			inbox:   &fakeInbox{},
			wantErr: true,
		},
		{
			name:    "inbox error",
			inbox:   &fakeInbox{err: errors.New("quota exceeded")},
			wantErr: true,
		},
		{
			name:    "no code in body",
			inbox:   &fakeInbox{msg: multipart("welcome to your account")},
			wantErr: true,
		},
		{
			name: "undecodable body",
			inbox: &fakeInbox{msg: &gmail.Message{
				Id:      "msg-4",
				Payload: &gmail.MessagePart{Body: &gmail.MessagePartBody{Data: "%%%not-base64%%%"}},
			}},
			wantErr: true,
		},
		{
			name:    "message without payload",
			inbox:   &fakeInbox{msg: &gmail.Message{Id: "msg-5"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(tt.inbox, "", 0)

			code, err := r.FetchCode(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrCodeNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
			assert.Equal(t, []string{DefaultQuery}, tt.inbox.queries)
		})
	}
}

func TestFetchCodeHonoursCancellation(t *testing.T) {
	inbox := &fakeInbox{msg: multipart("123456")}
	r := NewRetriever(inbox, "custom", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FetchCode(ctx)

	assert.ErrorIs(t, err, types.ErrCodeNotFound)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, inbox.queries)
}

func TestFindCode(t *testing.T) {
	tests := []struct {
		text     string
		expected string
		found    bool
	}{
		{text: "123456", expected: "123456", found: true},
		{text: "code 987654 expires", expected: "987654", found: true},
		{text: "ref 1234567 then 246810", expected: "246810", found: true},
		{text: "12345", found: false},
		{text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			code, found := FindCode(tt.text)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestDecodeBodySubstitutedAlphabet(t *testing.T) {
	// bytes chosen so the URL-safe alphabet emits both '-' and '_'
	payload := string([]byte{0xfb, 0xff, 0xbe}) + " 314159"
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	require.True(t, strings.ContainsAny(encoded, "-_"))

	decoded, err := decodeBody(encoded)

	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestGmailInboxLatestMessage(t *testing.T) {
	var listQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages"):
			listQuery = r.URL.Query().Get("q")
			assert.Equal(t, "1", r.URL.Query().Get("maxResults"))
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "abc"}},
			})
		case strings.HasSuffix(r.URL.Path, "/messages/abc"):
			json.NewEncoder(w).Encode(map[string]any{
				"id": "abc",
				"payload": map[string]any{
					"body": map[string]string{"data": encode("code 777888")},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	inbox, err := newGmailInbox(context.Background(), "me@example.com",
		option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	code, err := NewRetriever(inbox, "", 0).FetchCode(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "777888", code)
	assert.Equal(t, DefaultQuery, listQuery)
}

func TestGmailInboxNoMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultSizeEstimate":0}`))
	}))
	defer server.Close()

	inbox, err := newGmailInbox(context.Background(), "me@example.com",
		option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	msg, err := inbox.LatestMessage(context.Background(), DefaultQuery)

	require.NoError(t, err)
	assert.Nil(t, msg)
}
