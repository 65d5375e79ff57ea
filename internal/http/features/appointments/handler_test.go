package appointments

import (
	"testing"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

func TestResolveDoctorID(t *testing.T) {
	doctorID := uuid.New()
	otherID := uuid.New()

	tests := []struct {
		name      string
		principal *domain.Principal
		raw       string
		want      uuid.UUID
		wantErr   bool
	}{
		{
			name:      "doctor defaults to self",
			principal: &domain.Principal{UserID: doctorID, Role: domain.RoleDoctor},
			raw:       "",
			want:      doctorID,
		},
		{
			name:      "doctor can name another calendar",
			principal: &domain.Principal{UserID: doctorID, Role: domain.RoleDoctor},
			raw:       otherID.String(),
			want:      otherID,
		},
		{
			name:      "admin must name a doctor",
			principal: &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin},
			raw:       "",
			wantErr:   true,
		},
		{
			name:      "garbage id rejected",
			principal: &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin},
			raw:       "not-a-uuid",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := resolveDoctorID(tt.principal, tt.raw)
			if (errMsg != "") != tt.wantErr {
				t.Fatalf("errMsg = %q, wantErr %v", errMsg, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("doctor = %v, want %v", got, tt.want)
			}
		})
	}
}
