package pages

import "github.com/saas-dashboard/dashboard/internal/access"

// Link is an outbound link on a content page.
type Link struct {
	Title       string
	URL         string
	Description string
}

// Block is one card on a content page.
type Block struct {
	Heading string
	Body    string
	Items   []string
	Links   []Link
}

// Content is the data behind pages/content.html.
type Content struct {
	Intro  string
	Blocks []Block
}

// staticContent holds the pages whose body does not depend on the backend.
var staticContent = map[string]Content{
	access.ViewAnalytics: {
		Intro: "Usage and engagement at a glance.",
		Blocks: []Block{
			{Heading: "Traffic", Body: "Page views and sessions for the current period."},
			{Heading: "Engagement", Body: "Active users and average session length."},
		},
	},
	access.ViewReports: {
		Intro: "Create, schedule and manage all your reports from one central location.",
		Blocks: []Block{
			{Heading: "Performance Report", Body: "System performance metrics and analysis."},
			{Heading: "User Analytics", Body: "User behavior and engagement metrics."},
			{Heading: "Security Audit", Body: "Security assessment and vulnerability report."},
			{Heading: "Custom Report", Body: "Build your own custom report template."},
		},
	},
	access.ViewSimulations: {
		Intro: "Run what-if scenarios against sample data.",
		Blocks: []Block{
			{Heading: "Load simulation", Body: "Estimate capacity under increased traffic."},
			{Heading: "Failure drills", Body: "Rehearse recovery from backend outages."},
		},
	},
	access.ViewTools: {
		Intro: "Third-party checkers for comparing our sites against outside references. Links open in a new tab.",
		Blocks: []Block{
			{Heading: "Web quality", Links: []Link{
				{Title: "Performance Monitor", URL: "https://gtmetrix.com/", Description: "Website performance analysis"},
				{Title: "SEO Analyzer", URL: "https://www.seobility.net/en/seocheck/", Description: "SEO analysis and optimization"},
				{Title: "Code Validator", URL: "https://validator.w3.org/", Description: "HTML/CSS validation tool"},
			}},
			{Heading: "Utilities", Links: []Link{
				{Title: "Speed Test", URL: "https://www.speedtest.net/", Description: "Internet speed testing"},
				{Title: "JSON Formatter", URL: "https://jsonformatter.curiousconcept.com/", Description: "Format and validate JSON"},
			}},
		},
	},
	access.ViewHelp: {
		Intro: "Find answers to your questions and get the help you need.",
		Blocks: []Block{
			{Heading: "How do I reset my password?", Body: "Ask an administrator. Password resets are handled by the account service, not the dashboard."},
			{Heading: "Who can access secure files?", Body: "Users with the ITRA, Admin or SuperUser role. The section holds confidential documents and restricted materials."},
			{Heading: "How do I generate reports?", Body: "Open the Reports page and pick a template such as Performance, User Analytics or Security Audit."},
			{Heading: "What are the different user roles?", Body: "SuperUser (full access), Admin (administrative), ITRA (technical review), Manager, Operator, User (standard) and Guest (read-only)."},
			{Heading: "Contact", Items: []string{"Email: support@saasplatform.com, response within 24 hours", "Phone: (555) 123-4567, Mon-Fri 9AM-6PM EST", "Live chat: available 24/7"}},
		},
	},
	access.ViewInternal: {
		Intro: "Quick access to internal tools and services. Links open in a new tab and may require VPN access.",
		Blocks: []Block{
			{Heading: "System Management", Links: []Link{
				{Title: "Container Management (Portainer)", URL: "http://localhost:9000", Description: "Docker container monitoring and management"},
				{Title: "System Monitoring (Grafana)", URL: "http://localhost:3001", Description: "System metrics and performance dashboards"},
				{Title: "Metrics Collection (Prometheus)", URL: "http://localhost:9090", Description: "System metrics collection and queries"},
			}},
			{Heading: "Logging & Analytics", Links: []Link{
				{Title: "Log Search (Kibana)", URL: "http://localhost:5601", Description: "Search and analyze application logs"},
				{Title: "Email Testing (MailHog)", URL: "http://localhost:8025", Description: "Test email functionality and view sent emails"},
			}},
			{Heading: "API & Documentation", Links: []Link{
				{Title: "API Documentation (Swagger)", URL: "http://localhost:8000/docs", Description: "Interactive API documentation and testing"},
				{Title: "Alternative API Docs (ReDoc)", URL: "http://localhost:8000/redoc", Description: "Alternative API documentation format"},
				{Title: "API Health Check", URL: "http://localhost:8000/api/health", Description: "Backend service health status"},
			}},
		},
	},
	access.ViewShortcuts: {
		Intro: "Frequently used external services.",
		Blocks: []Block{
			{Heading: "Development Tools", Links: []Link{
				{Title: "GitHub", URL: "https://github.com", Description: "Code repository and version control"},
				{Title: "Stack Overflow", URL: "https://stackoverflow.com", Description: "Developer Q&A community"},
				{Title: "VS Code Web", URL: "https://vscode.dev", Description: "Online code editor"},
			}},
			{Heading: "Cloud Services", Links: []Link{
				{Title: "AWS Console", URL: "https://console.aws.amazon.com", Description: "Amazon Web Services dashboard"},
				{Title: "Google Cloud", URL: "https://console.cloud.google.com", Description: "Google Cloud Platform"},
				{Title: "Azure Portal", URL: "https://portal.azure.com", Description: "Microsoft Azure services"},
			}},
			{Heading: "Security Tools", Links: []Link{
				{Title: "OWASP", URL: "https://owasp.org", Description: "Web application security"},
				{Title: "Security Headers", URL: "https://securityheaders.com", Description: "Analyze HTTP security headers"},
				{Title: "SSL Labs", URL: "https://www.ssllabs.com/ssltest/", Description: "SSL/TLS configuration test"},
			}},
			{Heading: "Learning Resources", Links: []Link{
				{Title: "MDN Web Docs", URL: "https://developer.mozilla.org", Description: "Web development documentation"},
				{Title: "freeCodeCamp", URL: "https://freecodecamp.org", Description: "Free coding bootcamp"},
			}},
		},
	},
}

// roleDescriptions describes each role on the roles page.
var roleDescriptions = map[string]string{
	"SuperUser": "Full system access",
	"Admin":     "Administrative access",
	"Manager":   "Team oversight and reporting",
	"ITRA":      "Internal Technical Review Authority",
	"Operator":  "System operator access",
	"User":      "Standard user access",
	"Guest":     "Read-only access",
}
