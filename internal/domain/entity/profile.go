package entity

// JobSeekerProfile lives in the job-seeker collection. UserID equals the
// owning auth identity.
type JobSeekerProfile struct {
	UserID     string `json:"user_id" firestore:"userId"`
	Name       string `json:"name" firestore:"name"`
	Profession string `json:"profession,omitempty" firestore:"profession,omitempty"`
	Location   string `json:"location,omitempty" firestore:"location,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
}

// EmployerProfile lives in the employer collection.
type EmployerProfile struct {
	UserID      string `json:"user_id" firestore:"userId"`
	CompanyName string `json:"company_name" firestore:"companyName"`
	Industry    string `json:"industry,omitempty" firestore:"industry,omitempty"`
	Location    string `json:"location,omitempty" firestore:"location,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
}
