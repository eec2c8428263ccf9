package runtime

import "testing"

func TestStrictDeterminismMode(t *testing.T) {
	t.Run("ASIL D profile", func(t *testing.T) {
		ResetStrictDeterminismModeCache()
		t.Setenv("WRT_ASIL_PROFILE", "D")
		t.Setenv("WRT_DETERMINISTIC", "")
		if !StrictDeterminismMode() {
			t.Fatalf("StrictDeterminismMode() = false, want true")
		}
	})

	t.Run("ASIL C profile", func(t *testing.T) {
		ResetStrictDeterminismModeCache()
		t.Setenv("WRT_ASIL_PROFILE", "C")
		t.Setenv("WRT_DETERMINISTIC", "")
		if !StrictDeterminismMode() {
			t.Fatalf("StrictDeterminismMode() = false, want true")
		}
	})

	t.Run("forced via WRT_DETERMINISTIC", func(t *testing.T) {
		ResetStrictDeterminismModeCache()
		t.Setenv("WRT_ASIL_PROFILE", "QM")
		t.Setenv("WRT_DETERMINISTIC", "1")
		if !StrictDeterminismMode() {
			t.Fatalf("StrictDeterminismMode() = false, want true")
		}
	})

	t.Run("QM profile without override is not strict", func(t *testing.T) {
		ResetStrictDeterminismModeCache()
		t.Setenv("WRT_ASIL_PROFILE", "QM")
		t.Setenv("WRT_DETERMINISTIC", "")
		if StrictDeterminismMode() {
			t.Fatalf("StrictDeterminismMode() = true, want false")
		}
	})
}
