package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diogo/zai/internal/models"
)

func TestTranscript_AppendAndSetText(t *testing.T) {
	tr := NewTranscript()

	u := tr.Append(models.RoleUser, "Hello", "")
	a := tr.Append(models.RoleAssistant, "pending", "think-1")

	assert.True(t, u.Valid())
	assert.Equal(t, 2, tr.Len())

	assert.True(t, tr.SetText(a, "Hi there"))
	assert.Equal(t, "Hi there", tr.Text(a))

	msgs := tr.Messages()
	assert.Equal(t, models.Message{Role: models.RoleUser, Text: "Hello"}, msgs[0])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Text: "Hi there", ElementID: "think-1"}, msgs[1])
}

func TestTranscript_MessagesIsSnapshot(t *testing.T) {
	tr := NewTranscript()
	tr.Append(models.RoleUser, "a", "")

	msgs := tr.Messages()
	msgs[0].Text = "mutated"

	assert.Equal(t, "a", tr.Messages()[0].Text)
}

func TestTranscript_Lookup(t *testing.T) {
	tr := NewTranscript()
	tr.Append(models.RoleUser, "q", "")
	h := tr.Append(models.RoleAssistant, "p", "think-42")

	got, ok := tr.Lookup("think-42")
	assert.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = tr.Lookup("missing")
	assert.False(t, ok)
}

func TestTranscript_InvalidHandle(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.SetText(Handle{}, "x"))
	assert.Equal(t, "", tr.Text(Handle{}))
}

func TestTranscript_Version(t *testing.T) {
	tr := NewTranscript()
	v0 := tr.Version()
	h := tr.Append(models.RoleAssistant, "p", "id")
	v1 := tr.Version()
	tr.SetText(h, "done")

	assert.Greater(t, v1, v0)
	assert.Greater(t, tr.Version(), v1)
}

func TestTranscript_ConcurrentWrites(t *testing.T) {
	tr := NewTranscript()
	h := tr.Append(models.RoleAssistant, "p", "id")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Append(models.RoleUser, "x", "")
		}()
		go func() {
			defer wg.Done()
			tr.SetText(h, "y")
			_ = tr.Messages()
		}()
	}
	wg.Wait()

	assert.Equal(t, 51, tr.Len())
}
