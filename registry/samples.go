package registry

// Sample facilities offered to a parent whose workspace has no daycare or clinic yet.
var (
	SampleDaycares = []Daycare{
		{
			Id:            "dc1",
			Name:          "Kureha Nursery School",
			Address:       "3016 Kureha-machi, Toyama",
			Phone:         "076-123-4567",
			Email:         "kureha@example.com",
			ContactPerson: "Mika Sasaki",
		},
		{
			Id:            "dc2",
			Name:          "Sakura Nursery",
			Address:       "2-5-8 Sakuragi-cho, Toyama",
			Phone:         "076-234-5678",
			Email:         "sakura@example.com",
			ContactPerson: "Yuko Tanaka",
		},
	}

	SampleClinics = []Clinic{
		{
			Id:          "c1",
			Name:        "Kureha Kids Clinic",
			Address:     "2987-3 Kureha-machi, Toyama",
			Phone:       "076-345-6789",
			Email:       "kureha-kids@example.com",
			Specialties: []string{"pediatrics", "allergy"},
			Doctors: []Doctor{
				{Id: "d1", Name: "Ichiro Suzuki", Specialty: "pediatrics"},
				{Id: "d2", Name: "Naoko Yamada", Specialty: "pediatrics, allergy"},
			},
		},
		{
			Id:          "c2",
			Name:        "Hanamaru Pediatrics",
			Address:     "1-2-3 Hana-machi, Toyama",
			Phone:       "076-456-7890",
			Email:       "hanamaru@example.com",
			Specialties: []string{"pediatrics", "pediatric surgery"},
			Doctors: []Doctor{
				{Id: "d3", Name: "Kenta Takahashi", Specialty: "pediatric surgery"},
				{Id: "d4", Name: "Misaki Ito", Specialty: "pediatric neurology"},
			},
		},
	}
)
