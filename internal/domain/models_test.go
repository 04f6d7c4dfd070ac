package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPatient() *Patient {
	return &Patient{
		PatientID:     "P001",
		Name:          "Sarah Chen",
		DateOfBirth:   "1985-03-14",
		Age:           40,
		Gender:        "Female",
		InsurancePlan: "Aetna Gold PPO",
		MemberID:      "AET123456",
		Diagnoses: []Diagnosis{
			{Name: "Type 2 Diabetes", ICD10: "E11.9"},
		},
		Labs: LabResults{
			HbA1c:     8.2,
			BMI:       32.5,
			WeightLbs: 198,
		},
		TreatmentHistory: []Treatment{
			{Drug: "Metformin", DurationMonths: 12, Outcome: "inadequate response"},
		},
	}
}

func TestPatientValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Patient)
		wantErr bool
	}{
		{"Valid patient", func(p *Patient) {}, false},
		{"Missing patient ID", func(p *Patient) { p.PatientID = "" }, true},
		{"Negative age", func(p *Patient) { p.Age = -1 }, true},
		{"Age above bound", func(p *Patient) { p.Age = 151 }, true},
		{"Age at upper bound", func(p *Patient) { p.Age = 150 }, false},
		{"No diagnoses", func(p *Patient) { p.Diagnoses = nil }, true},
		{"Unnamed diagnosis", func(p *Patient) { p.Diagnoses[0].Name = "" }, true},
		{"BMI below bound", func(p *Patient) { p.Labs.BMI = 5 }, true},
		{"BMI above bound", func(p *Patient) { p.Labs.BMI = 75 }, true},
		{"BMI unrecorded", func(p *Patient) { p.Labs.BMI = 0 }, false},
		{"HbA1c below bound", func(p *Patient) { p.Labs.HbA1c = 1.5 }, true},
		{"HbA1c above bound", func(p *Patient) { p.Labs.HbA1c = 16 }, true},
		{"HbA1c unrecorded", func(p *Patient) { p.Labs.HbA1c = 0 }, false},
		{"Zero treatment duration", func(p *Patient) { p.TreatmentHistory[0].DurationMonths = 0 }, true},
		{"No treatment history", func(p *Patient) { p.TreatmentHistory = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPatient()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				var validationErr *ValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
