package extract

const classifySystemPrompt = `You classify notices from a campus placement portal into exactly one category: update, shortlisting, announcement, hackathon, webinar, job_posting. Also extract the company the notice is about, if any. Respond with a single valid JSON object: {"category": "<category>", "company": "<company name or empty string>"}`

const classifyUserPrompt = `Title: %s

Notice content:
%s`

const shortlistingSystemPrompt = `You extract structured data from campus placement shortlisting notices. Respond with one valid JSON object and nothing else:
{
  "company_name": "<company>",
  "role": "<role or empty string>",
  "package": "<package as stated, or empty string>",
  "students": [{"name": "<student name>", "enrollment": "<enrollment number or empty string>"}],
  "total_shortlisted": <integer count, 0 if not stated>
}
List every student named in the notice. Use empty strings for unknown fields, never invent values.`

const jobPostingSystemPrompt = `You extract structured data from campus placement job posting notices. Respond with one valid JSON object and nothing else:
{
  "company_name": "<company>",
  "role": "<role or empty string>",
  "package": "<package as stated, or empty string>",
  "deadline": "<application deadline as stated, or empty string>"
}
Use empty strings for unknown fields, never invent values.`

const eventSystemPrompt = `You extract structured data from campus placement event notices (hackathons, webinars, talks). Respond with one valid JSON object and nothing else:
{
  "event_name": "<event name or empty string>",
  "message": "<one short paragraph summarizing the notice for students>",
  "deadline": "<registration deadline or event date as stated, or empty string>"
}`

const genericSystemPrompt = `You summarize campus placement notices for students. Respond with one valid JSON object and nothing else:
{
  "message": "<one short paragraph with every actionable detail: venues, times, links, required documents>",
  "deadline": "<deadline as stated, or empty string>"
}`

const extractUserPrompt = `Notice content:
%s`

const offerSystemPrompt = `You analyze emails from a campus placement cell and extract final placement offer data.

First decide: is this email announcing FINAL selections (students who received offers)? Shortlists, interview schedules, test invitations, congratulation forwards without named selections, and administrative mail are NOT final offers.

Respond with one valid JSON object and nothing else:
{
  "is_final_placement_offer": <true|false>,
  "rejection_reason": "<why it is not a final offer, empty string when it is>",
  "company_name": "<company>",
  "roles": [{"role": "<role>", "package": <number in LPA or null>, "package_details": "<breakdown text or empty string>"}],
  "students": [{"name": "<name>", "enrollment": "<enrollment or empty string>", "email": "<email or empty string>", "role": "<role or empty string>", "package": <number in LPA or null>}],
  "total_offers": <integer, 0 if not stated>,
  "job_location": "<location or empty string>",
  "joining_date": "<joining date or empty string>",
  "additional_info": "<other offer details or empty string>"
}
Never include email addresses of senders, forwarding chains, or mail headers in any field. Use null for unknown packages, never guess numbers.`

const offerUserPrompt = `Subject: %s

Email body:
%s`
