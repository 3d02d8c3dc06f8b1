package identity

// SeedUsers returns the default roster.
func SeedUsers() []User {
	return []User{
		{ID: "1", Name: "المدير العام", Email: "kr@unismart.edu", Username: "KR", Password: "123", Role: RoleAdmin},
		{ID: "2", Name: "د. خالد العمري", Email: "khaled@unismart.edu", Username: "khaled_dr", Password: "123", Role: RoleDoctor, Specialty: "Computer Architecture"},
		{ID: "3", Name: "م. سارة محمود", Email: "sara@unismart.edu", Username: "sara_ta", Password: "123", Role: RoleTA, Specialty: "Algorithms"},
		{ID: "4", Name: "عمر القحطاني", Email: "omar@unismart.edu", Username: "omar_student", Password: "123", Role: RoleStudent, BatchID: "B-2024"},
	}
}
