package registration

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/raffleapp/registration/internal/districts"
)

const (
	MinAge = 16
	MaxAge = 100
)

// Form field names, shared with the HTML template.
const (
	FieldFullName  = "full_name"
	FieldPhone     = "phone"
	FieldAge       = "age"
	FieldGender    = "gender"
	FieldDistrict  = "district"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

type Choice struct {
	Value string
	Label string
}

var Genders = []Choice{
	{Value: "male", Label: "Мужской"},
	{Value: "female", Label: "Женский"},
}

const (
	msgRequired       = "Обязательное поле."
	msgNameTooShort   = "Поле должно содержать не менее 2 символов."
	msgAgeNotInteger  = "Некорректное целое число."
	msgAgeOutOfRange  = "Возраст должен быть от 16 до 100 лет."
	msgGenderInvalid  = "Выберите пол."
	msgDistrictChoice = "Выберите район из списка"
)

// Submission is the raw form as posted by the browser.
type Submission struct {
	FullName  string
	Phone     string
	Age       string
	Gender    string
	District  string
	Latitude  string
	Longitude string
}

type applicant struct {
	fullName string
	phone    string
	age      int
	gender   string
	district string
}

func (s Submission) validate(reg *districts.Registry) (applicant, error) {
	errs := make(map[string]string)
	var a applicant

	a.fullName = strings.TrimSpace(s.FullName)
	switch {
	case a.fullName == "":
		errs[FieldFullName] = msgRequired
	case utf8.RuneCountInString(a.fullName) < 2:
		errs[FieldFullName] = msgNameTooShort
	}

	a.phone = CanonicalPhone(s.Phone)
	if a.phone == "" {
		errs[FieldPhone] = msgRequired
	}

	if age := strings.TrimSpace(s.Age); age == "" {
		errs[FieldAge] = msgRequired
	} else if n, err := strconv.Atoi(age); err != nil {
		errs[FieldAge] = msgAgeNotInteger
	} else if n < MinAge || n > MaxAge {
		errs[FieldAge] = msgAgeOutOfRange
	} else {
		a.age = n
	}

	a.gender = strings.TrimSpace(s.Gender)
	if a.gender == "" {
		errs[FieldGender] = msgRequired
	} else if !validGender(a.gender) {
		errs[FieldGender] = msgGenderInvalid
	}

	a.district = strings.TrimSpace(s.District)
	if !reg.Contains(a.district) {
		errs[FieldDistrict] = msgDistrictChoice
	}

	if len(errs) > 0 {
		return applicant{}, &ValidationError{Fields: errs}
	}
	return a, nil
}

func validGender(g string) bool {
	for _, c := range Genders {
		if c.Value == g {
			return true
		}
	}
	return false
}

// coordinates parses the hidden geolocation fields. ok is false when either
// is missing, malformed or out of range.
func (s Submission) coordinates() (lat, lon float64, ok bool) {
	latStr, lonStr := strings.TrimSpace(s.Latitude), strings.TrimSpace(s.Longitude)
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// CanonicalPhone strips spacing and punctuation a user may type around the
// digits. A leading "+" is kept.
func CanonicalPhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case ' ', '\t', '-', '(', ')', '.', '\u00a0':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
