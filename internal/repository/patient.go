// Package repository implements the patient and coverage store interfaces
// over the relational database. JSON-typed patient fields (diagnoses, labs,
// treatment history) are stored as serialized text columns.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/database"
	"github.com/pa-workflow-server/internal/domain"
)

// PatientRepository handles patient record persistence.
type PatientRepository struct {
	db  *database.DB
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *database.DB, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

// GetPatient retrieves a patient by patient ID. A missing patient yields
// domain.ErrNotFound; any other error is an infrastructure failure.
func (r *PatientRepository) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	query := r.db.Rebind(`
		SELECT patient_id, name, date_of_birth, age, gender, address, phone, email,
		       insurance_plan, member_id, diagnoses, labs, treatment_history, allergies
		FROM patients
		WHERE patient_id = ?`)

	var (
		patient                              domain.Patient
		addressJSON, diagnosesJSON, labsJSON string
		treatmentHistoryJSON, allergiesJSON  string
	)

	err := r.db.SQL.QueryRowContext(ctx, query, patientID).Scan(
		&patient.PatientID,
		&patient.Name,
		&patient.DateOfBirth,
		&patient.Age,
		&patient.Gender,
		&addressJSON,
		&patient.Phone,
		&patient.Email,
		&patient.InsurancePlan,
		&patient.MemberID,
		&diagnosesJSON,
		&labsJSON,
		&treatmentHistoryJSON,
		&allergiesJSON,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get patient")
		return nil, fmt.Errorf("getting patient: %w", err)
	}

	if err := unmarshalPatientFields(&patient, addressJSON, diagnosesJSON, labsJSON, treatmentHistoryJSON, allergiesJSON); err != nil {
		return nil, fmt.Errorf("decoding patient %s: %w", patientID, err)
	}

	return &patient, nil
}

// CreatePatient inserts a validated patient record. Validation happens here,
// at the data-entry boundary, so the workflow can assume well-formed records.
func (r *PatientRepository) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	addressJSON, err := json.Marshal(patient.Address)
	if err != nil {
		return fmt.Errorf("encoding address: %w", err)
	}
	diagnosesJSON, err := json.Marshal(patient.Diagnoses)
	if err != nil {
		return fmt.Errorf("encoding diagnoses: %w", err)
	}
	labsJSON, err := json.Marshal(patient.Labs)
	if err != nil {
		return fmt.Errorf("encoding labs: %w", err)
	}
	historyJSON, err := json.Marshal(patient.TreatmentHistory)
	if err != nil {
		return fmt.Errorf("encoding treatment history: %w", err)
	}
	allergiesJSON, err := json.Marshal(patient.Allergies)
	if err != nil {
		return fmt.Errorf("encoding allergies: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO patients (
			patient_id, name, date_of_birth, age, gender, address, phone, email,
			insurance_plan, member_id, diagnoses, labs, treatment_history, allergies
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.SQL.ExecContext(ctx, query,
		patient.PatientID,
		patient.Name,
		patient.DateOfBirth,
		patient.Age,
		patient.Gender,
		string(addressJSON),
		patient.Phone,
		patient.Email,
		patient.InsurancePlan,
		patient.MemberID,
		string(diagnosesJSON),
		string(labsJSON),
		string(historyJSON),
		string(allergiesJSON),
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patient.PatientID,
			"error":      err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": patient.PatientID,
		"plan":       patient.InsurancePlan,
	}).Info("Patient created successfully")

	return nil
}

func unmarshalPatientFields(patient *domain.Patient, addressJSON, diagnosesJSON, labsJSON, historyJSON, allergiesJSON string) error {
	if addressJSON != "" {
		if err := json.Unmarshal([]byte(addressJSON), &patient.Address); err != nil {
			return fmt.Errorf("decoding address: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(diagnosesJSON), &patient.Diagnoses); err != nil {
		return fmt.Errorf("decoding diagnoses: %w", err)
	}
	if err := json.Unmarshal([]byte(labsJSON), &patient.Labs); err != nil {
		return fmt.Errorf("decoding labs: %w", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &patient.TreatmentHistory); err != nil {
		return fmt.Errorf("decoding treatment history: %w", err)
	}
	if allergiesJSON != "" {
		if err := json.Unmarshal([]byte(allergiesJSON), &patient.Allergies); err != nil {
			return fmt.Errorf("decoding allergies: %w", err)
		}
	}
	return nil
}
