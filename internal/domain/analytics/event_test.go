package analytics

import "testing"

func TestInteractionEventValidate(t *testing.T) {
	neg := -1
	ten := 10
	tests := []struct {
		name    string
		e       InteractionEvent
		wantErr bool
	}{
		{"ok", InteractionEvent{UserID: "u", ListingID: "l", Type: InteractionView}, false},
		{"with duration", InteractionEvent{UserID: "u", ListingID: "l", Type: InteractionView, DurationSeconds: &ten}, false},
		{"no user", InteractionEvent{ListingID: "l", Type: InteractionView}, true},
		{"no listing", InteractionEvent{UserID: "u", Type: InteractionClick}, true},
		{"bad type", InteractionEvent{UserID: "u", ListingID: "l", Type: "like"}, true},
		{"negative duration", InteractionEvent{UserID: "u", ListingID: "l", Type: InteractionView, DurationSeconds: &neg}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
