package security

import "testing"

func TestPasswordHashing(t *testing.T) {
	passwords := []string{
		"simplepassword",
		"ComplexP@ssw0rd!",
		"very_long_password_with_many_characters_123456789",
		"短密码", // Unicode password
	}

	for _, password := range passwords {
		hash, err := HashPassword(password)
		if err != nil {
			t.Errorf("Failed to hash password '%s': %v", password, err)
			continue
		}

		if hash == password {
			t.Errorf("Hashed password should not be the same as original password")
		}

		if !VerifyPassword(password, hash) {
			t.Errorf("Password verification failed for '%s'", password)
		}

		if VerifyPassword(password+"wrong", hash) {
			t.Errorf("Wrong password should not verify for '%s'", password)
		}
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword should reject an empty password")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if VerifyPassword("anything", "not-a-bcrypt-hash") {
		t.Error("VerifyPassword should reject a malformed hash")
	}
}
