package calibration

import (
	"encoding/json"
	"fmt"
	"time"
)

// Encode serialises calibration data in the current layout.
func Encode(d Data) ([]byte, error) {
	d.Version = DataVersion
	return json.Marshal(d)
}

// Decode parses persisted calibration data. Version-1 blobs written by the
// older handheld devices are migrated to the current layout.
func Decode(b []byte) (Data, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if probe.Version >= DataVersion {
		var d Data
		if err := json.Unmarshal(b, &d); err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return d, nil
	}

	var legacy legacyData
	if err := json.Unmarshal(b, &legacy); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return legacy.migrate(), nil
}

type legacyReference struct {
	X         uint16  `json:"x"`
	Y         uint16  `json:"y"`
	Z         uint16  `json:"z"`
	IR1       uint16  `json:"ir1"`
	IR2       uint16  `json:"ir2"`
	Timestamp int64   `json:"timestamp"`
	Quality   float64 `json:"quality"`
	IsValid   bool    `json:"isValid"`
}

type legacyData struct {
	Black          legacyReference `json:"blackReference"`
	White          legacyReference `json:"whiteReference"`
	Blue           legacyReference `json:"blueReference"`
	Yellow         legacyReference `json:"yellowReference"`
	IsCalibrated   bool            `json:"isCalibrated"`
	BlackComplete  bool            `json:"blackComplete"`
	WhiteComplete  bool            `json:"whiteComplete"`
	BlueComplete   bool            `json:"blueComplete"`
	YellowComplete bool            `json:"yellowComplete"`
	LEDBrightness  uint8           `json:"ledBrightness"`
	Timestamp      int64           `json:"calibrationTimestamp"`
}

func (r legacyReference) migrate(complete bool) Reference {
	ref := Reference{
		X: r.X, Y: r.Y, Z: r.Z, IR1: r.IR1, IR2: r.IR2,
		Quality: r.Quality,
		Valid:   r.IsValid && complete,
	}
	if r.Timestamp > 0 {
		ref.Timestamp = time.UnixMilli(r.Timestamp).UTC()
	}
	return ref
}

func (l legacyData) migrate() Data {
	d := defaultData()
	d.Black = l.Black.migrate(l.BlackComplete)
	if l.WhiteComplete && l.White.IsValid {
		d.White = l.White.migrate(true)
	}
	d.Blue = l.Blue.migrate(l.BlueComplete)
	d.Yellow = l.Yellow.migrate(l.YellowComplete)
	d.LEDBrightness = l.LEDBrightness
	if l.Timestamp > 0 {
		d.UpdatedAt = time.UnixMilli(l.Timestamp).UTC()
	}
	// The calibrated flag is recomputed from the references on restore.
	d.Calibrated = l.IsCalibrated && d.Black.Valid && d.White.Valid && ordered(d.Black, d.White)
	return d
}
