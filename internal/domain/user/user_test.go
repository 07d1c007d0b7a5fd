package user

import "testing"

func TestValidateUsername(t *testing.T) {
	ok := []string{"alice1", "alice_01", "a1234", "john-doe", "alice.dev"}
	for _, v := range ok {
		if err := ValidateUsername(v); err != nil {
			t.Fatalf("expected valid username %q: %v", v, err)
		}
	}
	bad := []string{"", "1alice", "a", "ab", "a_", "a..", "a*", "toolongusername_over_32_chars_abc"}
	for _, v := range bad {
		if err := ValidateUsername(v); err == nil {
			t.Fatalf("expected invalid username %q", v)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("S3cure!Passw0rd", "alice"); err != nil {
		t.Fatalf("expected valid password: %v", err)
	}
	if err := ValidatePassword("short1!", "alice"); err == nil {
		t.Fatalf("expected error for short password")
	}
	if err := ValidatePassword("alllowercase123!", "alice"); err == nil {
		t.Fatalf("expected error for missing upper")
	}
	if err := ValidatePassword("ALLUPPERCASE123!", "alice"); err == nil {
		t.Fatalf("expected error for missing lower")
	}
	if err := ValidatePassword("NoDigits!!!!!!!", "alice"); err == nil {
		t.Fatalf("expected error for missing digit")
	}
	if err := ValidatePassword("NoSpecial12345", "alice"); err == nil {
		t.Fatalf("expected error for missing special")
	}
	if err := ValidatePassword("Alice!Passw0rd", "alice"); err == nil {
		t.Fatalf("expected error for containing username")
	}
}

func TestValidateContact(t *testing.T) {
	if err := ValidateEmail(""); err != nil {
		t.Fatalf("empty email is allowed: %v", err)
	}
	if err := ValidateEmail("bob@example.org"); err != nil {
		t.Fatalf("expected valid email: %v", err)
	}
	if err := ValidateEmail("bob@"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := ValidatePhone("+1 (555) 010-2000"); err != nil {
		t.Fatalf("expected valid phone: %v", err)
	}
	if err := ValidatePhone("call me"); err != ErrInvalidPhone {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestReputation(t *testing.T) {
	u := &User{}
	if u.Reputation() != 0 {
		t.Fatalf("expected 0 for unrated user")
	}
	u.ApplyRating(10)
	u.ApplyRating(7)
	if u.ReputationCount != 2 || u.ReputationSum != 17 {
		t.Fatalf("unexpected aggregate %d/%d", u.ReputationSum, u.ReputationCount)
	}
	if u.Reputation() != 8.5 {
		t.Fatalf("expected 8.5, got %v", u.Reputation())
	}
}

func TestContact(t *testing.T) {
	u := &User{DisplayName: "Bob", Email: "bob@example.org", Phone: "+15550100"}
	c := u.Contact()
	if c.Email != u.Email || c.Phone != u.Phone || c.DisplayName != "Bob" {
		t.Fatalf("unexpected contact %+v", c)
	}
}
