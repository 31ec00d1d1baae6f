package registration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/raffleapp/registration/internal/districts"
	"github.com/raffleapp/registration/internal/geocoding"
	"github.com/raffleapp/registration/internal/logger"
	"github.com/raffleapp/registration/internal/metrics"
)

//go:generate mockgen -destination=mocks/geocoder.go -package=mocks . Geocoder

// Geocoder is satisfied by *geocoding.Client.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.Address, error)
}

// Outcome is the terminal state of a submission that passed validation.
type Outcome string

const (
	OutcomeGeoUnavailable    Outcome = "geo_unavailable"
	OutcomeGeoFailed         Outcome = "geo_failed"
	OutcomeDistrictRejected  Outcome = "district_rejected"
	OutcomeDistrictMismatch  Outcome = "district_mismatch"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomePersisted         Outcome = "persisted"
)

// Rejected reports whether the outcome ends with an error flash.
func (o Outcome) Rejected() bool {
	return o != OutcomeAlreadyRegistered && o != OutcomePersisted
}

// Modal identifiers the page opens on load.
const (
	ModalRegistrationSuccess = "#registrationSuccessModal"
	ModalAlreadyRegistered   = "#alreadyRegisteredModal"
)

const (
	DefaultCommunityLink = "#"
	DefaultRegion        = "Дагестан"
	DefaultCountry       = "Россия"
)

const (
	MsgGeoUnavailable   = "Не удалось определить ваше местоположение. Включите геолокацию!"
	MsgGeoFailed        = "Ошибка проверки адреса. Попробуйте позже."
	MsgDistrictMismatch = "Выбранный район не соответствует геолокации!"
)

func msgDistrictRejected(district string) string {
	return fmt.Sprintf("Регистрация недоступна для вашего района (%s)!", district)
}

// kayakentDistrict is accepted for the combined district even though
// Normalize folds it into districts.Izberbash and never returns it.
const kayakentDistrict = "Каякентский район"

// Result describes what the page should show. Message is set for rejected
// outcomes, Modal and CommunityLink for the other two.
type Result struct {
	Outcome          Outcome
	Message          string
	Modal            string
	CommunityLink    string
	DetectedDistrict string
	Registration     *Registration
}

type Deps struct {
	Registry *districts.Registry
	Geocoder Geocoder
	Store    Store
	// Links defaults to Store.
	Links   LinkSource
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type Service struct {
	registry *districts.Registry
	geocoder Geocoder
	store    Store
	links    LinkSource
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		registry: d.Registry,
		geocoder: d.Geocoder,
		store:    d.Store,
		links:    d.Links,
		metrics:  d.Metrics,
		log:      d.Logger,
	}
	if s.registry == nil {
		s.registry = districts.Default
	}
	if s.links == nil {
		s.links = d.Store
	}
	if s.log == nil {
		s.log = logger.L()
	}
	return s
}

// Register runs one submission through validation, geocoding, the district
// checks and persistence. Business rejections come back as a Result; the
// returned error is a *ValidationError, wraps ErrStorage, or is unexpected.
func (s *Service) Register(ctx context.Context, sub Submission) (*Result, error) {
	a, err := sub.validate(s.registry)
	if err != nil {
		return nil, err
	}

	lat, lon, ok := sub.coordinates()
	if !ok {
		return s.finish(&Result{Outcome: OutcomeGeoUnavailable, Message: MsgGeoUnavailable}), nil
	}

	start := time.Now()
	addr, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		s.metrics.ObserveGeocode("error", time.Since(start))
		s.log.Error("reverse geocoding failed",
			"error", fmt.Errorf("%w: %w", ErrUpstream, err),
			"lat", lat, "lon", lon)
		return s.finish(&Result{Outcome: OutcomeGeoFailed, Message: MsgGeoFailed}), nil
	}
	s.metrics.ObserveGeocode("ok", time.Since(start))

	county := addr.County
	if !s.registry.IsDistrictAllowed(county) {
		s.log.Info("district not allowed", "county", county)
		return s.finish(&Result{
			Outcome:          OutcomeDistrictRejected,
			Message:          msgDistrictRejected(county),
			DetectedDistrict: county,
		}), nil
	}

	geo := s.registry.Normalize(county)
	if !districtMatches(a.district, geo) {
		s.log.Info("district mismatch", "selected", a.district, "detected", geo)
		return s.finish(&Result{
			Outcome:          OutcomeDistrictMismatch,
			Message:          MsgDistrictMismatch,
			DetectedDistrict: geo,
		}), nil
	}

	link, found, err := s.links.CommunityLink(ctx, a.district)
	if err != nil {
		return nil, err
	}
	if !found || link == "" {
		link = DefaultCommunityLink
	}

	already := &Result{
		Outcome:          OutcomeAlreadyRegistered,
		Modal:            ModalAlreadyRegistered,
		CommunityLink:    link,
		DetectedDistrict: geo,
	}
	fp := logger.Fingerprint(a.phone)

	exists, err := s.store.PhoneExists(ctx, a.phone)
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.Info("phone already registered", "phone_fp", fp)
		return s.finish(already), nil
	}

	reg := &Registration{
		ID:        uuid.New(),
		FullName:  a.fullName,
		Phone:     a.phone,
		Age:       a.age,
		Gender:    a.gender,
		District:  a.district,
		City:      addr.Locality(),
		Region:    orDefault(addr.State, DefaultRegion),
		Country:   orDefault(addr.Country, DefaultCountry),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := s.store.Create(ctx, reg); err != nil {
		if IsConflict(err) {
			s.log.Info("phone registered concurrently", "phone_fp", fp)
			return s.finish(already), nil
		}
		return nil, err
	}

	s.log.Info("registration stored",
		"id", reg.ID, "district", reg.District, "city", reg.City, "phone_fp", fp)
	return s.finish(&Result{
		Outcome:          OutcomePersisted,
		Modal:            ModalRegistrationSuccess,
		CommunityLink:    link,
		DetectedDistrict: geo,
		Registration:     reg,
	}), nil
}

func (s *Service) finish(r *Result) *Result {
	s.metrics.IncOutcome(string(r.Outcome))
	return r
}

// districtMatches compares the selected district with the geocoded one.
// The combined district also accepts a bare Kayakent result.
func districtMatches(selected, geo string) bool {
	if selected == geo {
		return true
	}
	return selected == districts.Izberbash && geo == kayakentDistrict
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
