package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"insulinai-backend/models"

	"gorm.io/gorm"
)

// LibreService pulls CGM readings from LibreLinkUp. Accounts live on
// regional API hosts; login against the global host may answer with a
// redirect naming the right region, which is then stored on the user.
type LibreService struct {
	client *http.Client
	db     *gorm.DB
	hub    *RealtimeHub
}

func NewLibreService(db *gorm.DB, hub *RealtimeHub) *LibreService {
	return &LibreService{
		client: &http.Client{Timeout: 15 * time.Second},
		db:     db,
		hub:    hub,
	}
}

func libreBaseURL(region string) string {
	if region == "" {
		return "https://api.libreview.io"
	}
	return fmt.Sprintf("https://api-%s.libreview.io", region)
}

type libreSession struct {
	token     string
	accountID string
	region    string
}

type libreLoginResponse struct {
	Status int `json:"status"`
	Data   struct {
		Redirect   bool   `json:"redirect"`
		Region     string `json:"region"`
		AuthTicket struct {
			Token string `json:"token"`
		} `json:"authTicket"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

type libreConnection struct {
	PatientID string `json:"patientId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type libreMeasurement struct {
	ValueInMgPerDl float64 `json:"ValueInMgPerDl"`
	Timestamp      string  `json:"Timestamp"`
	TrendArrow     int     `json:"TrendArrow"`
	IsHigh         bool    `json:"isHigh"`
	IsLow          bool    `json:"isLow"`
}

type libreGraphResponse struct {
	Data struct {
		Connection struct {
			GlucoseMeasurement libreMeasurement `json:"glucoseMeasurement"`
		} `json:"connection"`
		GraphData []libreMeasurement `json:"graphData"`
	} `json:"data"`
}

// login authenticates against LibreLinkUp, following at most one regional
// redirect. The resolved region is returned so callers can persist it.
func (s *LibreService) login(email, password, region string) (*libreSession, error) {
	for attempt := 0; attempt < 2; attempt++ {
		body, _ := json.Marshal(map[string]string{"email": email, "password": password})
		req, err := http.NewRequest("POST", libreBaseURL(region)+"/llu/auth/login", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		s.setHeaders(req, "")

		var lr libreLoginResponse
		if err := s.doJSON(req, &lr); err != nil {
			return nil, err
		}
		if lr.Data.Redirect && lr.Data.Region != "" && attempt == 0 {
			region = lr.Data.Region
			continue
		}
		if lr.Status != 0 || lr.Data.AuthTicket.Token == "" {
			return nil, fmt.Errorf("%w: LibreLinkUp login rejected (status %d)", ErrUpstream, lr.Status)
		}

		// account-id header is the SHA-256 of the LLU user id
		sum := sha256.Sum256([]byte(lr.Data.User.ID))
		return &libreSession{
			token:     lr.Data.AuthTicket.Token,
			accountID: hex.EncodeToString(sum[:]),
			region:    region,
		}, nil
	}
	return nil, fmt.Errorf("%w: LibreLinkUp redirect loop", ErrUpstream)
}

func (s *LibreService) setHeaders(req *http.Request, session string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("product", "llu.android")
	req.Header.Set("version", "4.7.0")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
}

func (s *LibreService) doJSON(req *http.Request, dst any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: call LibreLinkUp: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read LibreLinkUp response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: LibreLinkUp error %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: parse LibreLinkUp JSON: %v", ErrUpstream, err)
	}
	return nil
}

// LinkAccount verifies LibreLinkUp credentials, resolves the patient to
// follow and stores everything on the user.
func (s *LibreService) LinkAccount(user *models.User, email, password string) error {
	session, err := s.login(email, password, "")
	if err != nil {
		return err
	}

	req, err := http.NewRequest("GET", libreBaseURL(session.region)+"/llu/connections", nil)
	if err != nil {
		return err
	}
	s.setHeaders(req, session.token)
	req.Header.Set("account-id", session.accountID)

	var cr struct {
		Data []libreConnection `json:"data"`
	}
	if err := s.doJSON(req, &cr); err != nil {
		return err
	}
	if len(cr.Data) == 0 {
		return errors.New("no LibreLinkUp connections on this account")
	}

	user.LibreEmail = email
	user.LibrePassword = password
	user.LibreRegion = session.region
	user.LibrePatientID = cr.Data[0].PatientID
	return s.db.Save(user).Error
}

// SyncUser fetches the latest CGM graph for the user, stores the readings
// it has not seen yet and runs alert evaluation on the newest sample.
// Returns the number of new readings.
func (s *LibreService) SyncUser(user *models.User) (int, error) {
	if user.LibreEmail == "" || user.LibrePatientID == "" {
		return 0, errors.New("LibreLinkUp not linked")
	}

	session, err := s.login(user.LibreEmail, user.LibrePassword, user.LibreRegion)
	if err != nil {
		return 0, err
	}
	if session.region != user.LibreRegion {
		user.LibreRegion = session.region
		_ = s.db.Save(user).Error
	}

	u := fmt.Sprintf("%s/llu/connections/%s/graph", libreBaseURL(session.region), user.LibrePatientID)
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return 0, err
	}
	s.setHeaders(req, session.token)
	req.Header.Set("account-id", session.accountID)

	var gr libreGraphResponse
	if err := s.doJSON(req, &gr); err != nil {
		return 0, err
	}

	samples := append(gr.Data.GraphData, gr.Data.Connection.GlucoseMeasurement)
	inserted := 0
	var latest *models.GlucoseReading
	for _, m := range samples {
		reading, err := toReading(user.ID, m)
		if err != nil {
			continue
		}
		res := s.db.Where("user_id = ? AND measured_at = ?", user.ID, reading.MeasuredAt).
			FirstOrCreate(reading)
		if res.Error == nil && res.RowsAffected > 0 {
			inserted++
		}
		if latest == nil || reading.MeasuredAt.After(latest.MeasuredAt) {
			latest = reading
		}
	}

	if latest != nil {
		EvaluateReading(user, latest)
		if s.hub != nil {
			s.hub.Broadcast(user.ID, "glucose.reading", latest)
		}
	}
	return inserted, nil
}

// ListReadings returns readings within the last N hours, oldest first.
func (s *LibreService) ListReadings(userID uint, hours int) ([]models.GlucoseReading, error) {
	if hours <= 0 || hours > 24*14 {
		hours = 24
	}
	var readings []models.GlucoseReading
	err := s.db.Where("user_id = ? AND measured_at > ?",
		userID, time.Now().Add(-time.Duration(hours)*time.Hour)).
		Order("measured_at ASC").Find(&readings).Error
	return readings, err
}

func toReading(userID uint, m libreMeasurement) (*models.GlucoseReading, error) {
	if m.ValueInMgPerDl <= 0 {
		return nil, errors.New("empty measurement")
	}
	// LibreLinkUp timestamps look like "1/2/2026 3:04:05 PM"
	ts, err := time.Parse("1/2/2006 3:04:05 PM", m.Timestamp)
	if err != nil {
		return nil, err
	}
	return &models.GlucoseReading{
		UserID:     userID,
		Value:      m.ValueInMgPerDl,
		Trend:      m.TrendArrow,
		High:       m.IsHigh,
		Low:        m.IsLow,
		MeasuredAt: ts,
	}, nil
}
