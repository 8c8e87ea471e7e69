package models

// SeedUsers is the fallback roster used when the remote user collection is
// empty or unreachable. Points are fixed so the seeded leaderboard has a
// stable ordering.
func SeedUsers() []User {
	return []User{
		{ID: "u1", Name: "Aarav Sharma", AvatarURL: "/avatars/user-1.png", Points: 2450},
		{ID: "u2", Name: "Saanvi Gupta", AvatarURL: "/avatars/user-2.png", Points: 2210},
		{ID: "u3", Name: "Vikram Singh", AvatarURL: "/avatars/user-3.png", Points: 1980},
		{ID: "u4", Name: "Diya Patel", AvatarURL: "/avatars/user-4.png", Points: 1850},
		{ID: "u5", Name: "Rohan Kumar", AvatarURL: "/avatars/user-5.png", Points: 1720},
	}
}

// DefaultUser is the demo identity used when no session identity matches the
// loaded roster.
func DefaultUser() User {
	return SeedUsers()[0]
}
