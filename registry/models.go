package registry

import (
	"time"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Child struct {
	Id                 string    `json:"id"`
	ParentId           string    `json:"parentId"`
	Name               string    `json:"name"`
	BirthDate          string    `json:"birthDate"` // YYYY-MM-DD
	Age                int       `json:"age"`
	Gender             string    `json:"gender"`
	Allergies          []string  `json:"allergies"`
	MedicalConditions  []string  `json:"medicalConditions"`
	Photo              string    `json:"photo,omitempty"`
	InsuranceCardImage string    `json:"insuranceCardImage,omitempty"`
	RecipientCertImage string    `json:"recipientCertImage,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// HasDocuments reports whether at least one consultation document is registered.
func (c Child) HasDocuments() bool {
	return c.InsuranceCardImage != "" || c.RecipientCertImage != ""
}

type ChildUpdate struct {
	Name               *string
	BirthDate          *string
	Age                *int
	Gender             *string
	Allergies          *[]string
	MedicalConditions  *[]string
	Photo              *string
	InsuranceCardImage *string
	RecipientCertImage *string
}

func (u ChildUpdate) apply(c *Child) error {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.BirthDate != nil {
		c.BirthDate = *u.BirthDate
	}
	if u.Age != nil {
		c.Age = *u.Age
	}
	if u.Gender != nil {
		c.Gender = *u.Gender
	}
	if u.Allergies != nil {
		c.Allergies = append([]string{}, (*u.Allergies)...)
	}
	if u.MedicalConditions != nil {
		c.MedicalConditions = append([]string{}, (*u.MedicalConditions)...)
	}
	if u.Photo != nil {
		c.Photo = *u.Photo
	}
	if u.InsuranceCardImage != nil {
		c.InsuranceCardImage = *u.InsuranceCardImage
	}
	if u.RecipientCertImage != nil {
		c.RecipientCertImage = *u.RecipientCertImage
	}
	return nil
}

type Daycare struct {
	Id            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	ContactPerson string    `json:"contactPerson"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DaycareUpdate struct {
	Name          *string
	Address       *string
	Phone         *string
	Email         *string
	ContactPerson *string
}

func (u DaycareUpdate) apply(d *Daycare) error {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Address != nil {
		d.Address = *u.Address
	}
	if u.Phone != nil {
		d.Phone = *u.Phone
	}
	if u.Email != nil {
		d.Email = *u.Email
	}
	if u.ContactPerson != nil {
		d.ContactPerson = *u.ContactPerson
	}
	return nil
}

type Doctor struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type Clinic struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Specialties []string  `json:"specialties"`
	Doctors     []Doctor  `json:"doctors"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ClinicUpdate struct {
	Name        *string
	Address     *string
	Phone       *string
	Email       *string
	Specialties *[]string
	Doctors     *[]Doctor
}

func (u ClinicUpdate) apply(c *Clinic) error {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Specialties != nil {
		c.Specialties = append([]string{}, (*u.Specialties)...)
	}
	if u.Doctors != nil {
		c.Doctors = append([]Doctor{}, (*u.Doctors)...)
	}
	return nil
}

type Appointment struct {
	Id          string    `json:"id"`
	ChildId     string    `json:"childId"`
	DaycareId   string    `json:"daycareId"`
	ClinicId    string    `json:"clinicId"`
	DoctorId    string    `json:"doctorId"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	MeetingLink string    `json:"meetingLink"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppointmentUpdate never touches status or meeting link, those have dedicated operations.
type AppointmentUpdate struct {
	ChildId   *string
	DaycareId *string
	ClinicId  *string
	DoctorId  *string
	Date      *string
	Time      *string
	Notes     *string
}

// ApplyTo previews the update on a copy held by the caller.
func (u AppointmentUpdate) ApplyTo(a *Appointment) error {
	return u.apply(a)
}

func (u AppointmentUpdate) apply(a *Appointment) error {
	if u.ChildId != nil {
		a.ChildId = *u.ChildId
	}
	if u.DaycareId != nil {
		a.DaycareId = *u.DaycareId
	}
	if u.ClinicId != nil {
		a.ClinicId = *u.ClinicId
	}
	if u.DoctorId != nil {
		a.DoctorId = *u.DoctorId
	}
	if u.Date != nil {
		a.Date = *u.Date
	}
	if u.Time != nil {
		a.Time = *u.Time
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
	return nil
}

func (c *Child) GetId() string {
	return c.Id
}

func (c *Child) setId(id string) {
	c.Id = id
}

func (c *Child) touch(t time.Time) {
	c.UpdatedAt = t
}

func (c *Child) LastUpdate() time.Time {
	return c.UpdatedAt
}

func (d *Daycare) GetId() string {
	return d.Id
}

func (d *Daycare) setId(id string) {
	d.Id = id
}

func (d *Daycare) touch(t time.Time) {
	d.UpdatedAt = t
}

func (d *Daycare) LastUpdate() time.Time {
	return d.UpdatedAt
}

func (c *Clinic) GetId() string {
	return c.Id
}

func (c *Clinic) setId(id string) {
	c.Id = id
}

func (c *Clinic) touch(t time.Time) {
	c.UpdatedAt = t
}

func (c *Clinic) LastUpdate() time.Time {
	return c.UpdatedAt
}

func (a *Appointment) GetId() string {
	return a.Id
}

func (a *Appointment) setId(id string) {
	a.Id = id
}

func (a *Appointment) touch(t time.Time) {
	a.UpdatedAt = t
}

func (a *Appointment) LastUpdate() time.Time {
	return a.UpdatedAt
}
