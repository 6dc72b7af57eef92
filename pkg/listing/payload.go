package listing

// Price bounds accepted by the backend for create and update.
const (
	MinPrice = 100000.0
	MaxPrice = 100000000.0
)

// Payload is the body of a create or update request.
type Payload struct {
	Title       string  `json:"title" form:"title" validate:"required,min=5,max=100" label:"Title"`
	Location    string  `json:"location" form:"location" validate:"required,min=3,max=100" label:"Location"`
	Price       float64 `json:"price" form:"price" validate:"gt=0,gte=100000,lte=100000000" msg:"gt=Price must be positive|gte=Price must be at least 100,000|lte=Price cannot exceed 100,000,000"`
	ImageURL    string  `json:"imageUrl" form:"imageUrl" validate:"required,max=500,http_url" label:"Image URL" msg:"http_url=Image URL must be a valid HTTP/HTTPS URL"`
	Description string  `json:"description" form:"description" validate:"required,min=10,max=1000" label:"Description"`
	Bedrooms    *int    `json:"bedrooms,omitempty" form:"bedrooms" validate:"omitempty,gte=0" label:"Bedrooms"`
	Bathrooms   *int    `json:"bathrooms,omitempty" form:"bathrooms" validate:"omitempty,gte=0" label:"Bathrooms"`
	Area        string  `json:"area,omitempty" form:"area"`
}

// Validate checks the payload against the backend's request rules and
// returns every violation at once as perrors.FieldErrors.
func (p Payload) Validate() error {
	return validateForm(p)
}

// FromListing builds an update payload from an existing listing.
func FromListing(l Listing) Payload {
	return Payload{
		Title:       l.Title,
		Location:    l.Location,
		Price:       l.Price,
		ImageURL:    l.ImageURL,
		Description: l.Description,
		Bedrooms:    l.Bedrooms,
		Bathrooms:   l.Bathrooms,
		Area:        l.Area,
	}
}

// User is the identity returned by signup, login and /me.
type User struct {
	ID          int64  `json:"id,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Type        string `json:"type,omitempty"`
}

// DisplayName returns the name shown in the header greeting.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// Session is what login returns: the user plus an optional bearer token.
type Session struct {
	User
	Token string `json:"token,omitempty"`
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" form:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" form:"password" validate:"required" label:"Password" trim:"false"`
}

// Validate mirrors the login form checks.
func (c Credentials) Validate() error {
	return validateForm(c)
}

// SignupRequest is the registration form.
type SignupRequest struct {
	FirstName   string `json:"firstName" form:"firstName" validate:"required,min=2,max=50" label:"First name"`
	LastName    string `json:"lastName" form:"lastName" validate:"required,min=2,max=50" label:"Last name"`
	Email       string `json:"email" form:"email" validate:"required,max=100,email" label:"Email" msg:"email=Email should be valid"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber" validate:"required,digits,min=10,max=20" label:"Phone number" msg:"*=Phone number must be between 10 and 20 digits"`
	Password    string `json:"password" form:"password" validate:"required,min=6,max=100" label:"Password" trim:"false"`
	Type        string `json:"type" form:"type" validate:"required,max=20" label:"Type"`
}

// Validate mirrors the backend's registration rules.
func (r SignupRequest) Validate() error {
	return validateForm(r)
}

// Enquiry is the contact form on the detail page.
type Enquiry struct {
	Name    string `json:"name" form:"name" validate:"required,min=2,max=100" label:"Name"`
	Email   string `json:"email" form:"email" validate:"required,email" label:"Email"`
	Phone   string `json:"phone,omitempty" form:"phone" validate:"omitempty,digits,min=10,max=20" msg:"*=Phone number must be between 10 and 20 digits"`
	Message string `json:"message" form:"message" validate:"required,min=10,max=1000" label:"Message"`
}

// Validate checks the contact form.
func (e Enquiry) Validate() error {
	return validateForm(e)
}
