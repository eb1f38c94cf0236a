package probe

// Record is the metadata harvested from one DICOM file. PatientID is a
// DICOM Long String and stays text end to end: leading zeros and
// non-digit characters are preserved.
type Record struct {
	FilePath    string `json:"filepath"`
	PatientName string `json:"patient_name"`
	PatientID   string `json:"patient_id"`
}
