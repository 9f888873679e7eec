package maestro

import (
	"errors"
	"testing"
)

func TestParseBusCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		wantErr bool
	}{
		{payload: "42,3", want: "C|WriteParametri|42|6"},
		{payload: "42,21.5", want: "C|WriteParametri|42|43"},
		{payload: "42,20.7", want: "C|WriteParametri|42|41"},
		{payload: "34,1", want: "C|WriteParametri|34|1"},
		{payload: " 34 , 0 ", want: "C|WriteParametri|34|0"},
		{payload: "36,2.5", want: "C|WriteParametri|36|2.5"},
		{payload: "42,abc", wantErr: true},
		{payload: "42,NaN", wantErr: true},
		{payload: "34", wantErr: true},
		{payload: "", wantErr: true},
		{payload: "x,1", wantErr: true},
		{payload: "34,", wantErr: true},
		{payload: "34,1,2", want: "C|WriteParametri|34|1"},
		{payload: "42,21.5,extra", want: "C|WriteParametri|42|43"},
		{payload: "34,1|C|RecuperoInfo", wantErr: true},
		{payload: "34,|", wantErr: true},
		{payload: "42,1e300", wantErr: true},
		{payload: "42,-1e300", wantErr: true},
		{payload: "42,1073741824", wantErr: true},
		{payload: "42,1073741823", want: "C|WriteParametri|42|2147483646"},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ParseBusCommand(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("ParseBusCommand() error = %v, want ErrInvalidCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBusCommand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseBusCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEntityCommand(t *testing.T) {
	codes := map[string]int{"Power": 34, "Temperature_Setpoint": 42}

	got, err := ParseEntityCommand(codes, "Power", "1")
	if err != nil || got != "C|WriteParametri|34|1" {
		t.Errorf("ParseEntityCommand(Power) = %q, %v", got, err)
	}

	got, err = ParseEntityCommand(codes, "Temperature_Setpoint", "21.5")
	if err != nil || got != "C|WriteParametri|42|43" {
		t.Errorf("ParseEntityCommand(Temperature_Setpoint) = %q, %v", got, err)
	}

	if _, err := ParseEntityCommand(codes, "Eco_Mode", "1"); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("ParseEntityCommand(unknown) error = %v, want ErrUnknownEntity", err)
	}
	if _, err := ParseEntityCommand(nil, "Power", "1"); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("ParseEntityCommand(nil codes) error = %v, want ErrUnknownEntity", err)
	}
	if _, err := ParseEntityCommand(codes, "Power", ""); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("ParseEntityCommand(empty payload) error = %v, want ErrInvalidCommand", err)
	}
	if _, err := ParseEntityCommand(codes, "Power", "1|C|RecuperoInfo"); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("ParseEntityCommand(separator in payload) error = %v, want ErrInvalidCommand", err)
	}
}
