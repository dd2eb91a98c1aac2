package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Events round-trip through JSON with their typed attributes restored.
func Test_Event_UnmarshalRestoresAttributes(t *testing.T) {
	event := NewPendingEvent(time.Now().UTC(), EventType_ActivityScheduled,
		&ActivityScheduledAttributes{
			Name:        "SendCalendarInvitation",
			Input:       []byte(`{"interviewId":"i-1"}`),
			RetryPolicy: RetryPolicy{MaxAttempts: 3, Backoff: 30 * time.Second},
		},
		ScheduleEventID(1),
	)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var restored Event
	require.NoError(t, json.Unmarshal(data, &restored))

	require.Equal(t, event.ID, restored.ID)
	require.Equal(t, EventType_ActivityScheduled, restored.Type)
	require.EqualValues(t, 1, restored.ScheduleEventID)

	a, ok := restored.Attributes.(*ActivityScheduledAttributes)
	require.True(t, ok)
	require.Equal(t, "SendCalendarInvitation", a.Name)
	require.Equal(t, 3, a.RetryPolicy.MaxAttempts)
	require.Equal(t, 30*time.Second, a.RetryPolicy.Backoff)
}

func Test_DeserializeAttributes_UnknownType(t *testing.T) {
	_, err := DeserializeAttributes(EventType(99), []byte(`{}`))
	require.Error(t, err)
}
